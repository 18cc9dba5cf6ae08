package entity

import (
	"time"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
)

// Lot is one batch of a product held at one facility or warehouse.
// Quantity is never negative. Exhausted lots are retained with quantity zero
// so the audit trail stays complete; they are never deleted.
type Lot struct {
	ID id.ID `db:"id" json:"id"`

	// Dimensions
	FacilityID id.ID `db:"facility_id" json:"facilityId"`
	ProductID  id.ID `db:"product_id" json:"productId"`

	// Batch identity
	BatchNumber string     `db:"batch_number" json:"batchNumber"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// Resources
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	Unit    string `db:"unit" json:"unit,omitempty"`
	Barcode string `db:"barcode" json:"barcode,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewLot creates a lot for newly received stock.
func NewLot(facilityID, productID id.ID, batchNumber string, expiry *time.Time, qty types.Quantity, unit, barcode string) Lot {
	now := time.Now().UTC()
	return Lot{
		ID:          id.New(),
		FacilityID:  facilityID,
		ProductID:   productID,
		BatchNumber: batchNumber,
		ExpiryDate:  expiry,
		Quantity:    qty,
		Unit:        unit,
		Barcode:     barcode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsExhausted reports whether the lot has no issuable stock left.
func (l *Lot) IsExhausted() bool {
	return l.Quantity.IsZero()
}

// ExpiresBefore orders lots for issue: earliest expiry first, lots without
// an expiry date last, ties broken by ID (UUIDv7 = insertion order).
func (l *Lot) ExpiresBefore(other *Lot) bool {
	switch {
	case l.ExpiryDate != nil && other.ExpiryDate != nil:
		if !l.ExpiryDate.Equal(*other.ExpiryDate) {
			return l.ExpiryDate.Before(*other.ExpiryDate)
		}
	case l.ExpiryDate != nil:
		return true
	case other.ExpiryDate != nil:
		return false
	}
	return l.ID.String() < other.ID.String()
}
