package entity

import (
	"time"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
)

// MovementType defines the direction of a ledger entry.
type MovementType string

const (
	// MovementReceived increases facility stock
	MovementReceived MovementType = "received"
	// MovementIssued decreases facility stock
	MovementIssued MovementType = "issued"
)

// SourceType attributes a movement to the business operation that produced it.
type SourceType string

const (
	SourceTransfer    SourceType = "transfer"
	SourceOrder       SourceType = "order"
	SourceDispense    SourceType = "dispense"
	SourceMOHDispense SourceType = "moh_dispense"
	SourceAdjustment  SourceType = "adjustment"
)

// Movement is one append-only ledger entry documenting a single lot mutation.
// Movements are immutable: never updated or deleted once written. They are
// created in the same transaction as the lot change they document.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	// Dimensions
	FacilityID id.ID `db:"facility_id" json:"facilityId"`
	ProductID  id.ID `db:"product_id" json:"productId"`

	MovementType MovementType `db:"movement_type" json:"movementType"`

	// Source attribution
	SourceType   SourceType `db:"source_type" json:"sourceType"`
	SourceID     id.ID      `db:"source_id" json:"sourceId"`
	SourceItemID id.ID      `db:"source_item_id" json:"sourceItemId"`

	// Exactly one of the two quantities is non-zero, matching MovementType.
	ReceivedQuantity types.Quantity `db:"received_quantity" json:"receivedQuantity"`
	IssuedQuantity   types.Quantity `db:"issued_quantity" json:"issuedQuantity"`

	// Batch identity carried from the lot for traceability
	BatchNumber string     `db:"batch_number" json:"batchNumber"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// MovementDate is the business date (period-based queries key on it)
	MovementDate time.Time `db:"movement_date" json:"movementDate"`

	ReferenceNumber string    `db:"reference_number" json:"referenceNumber"`
	CreatedBy       string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// MovementAttrs carries the shared fields for building ledger entries.
type MovementAttrs struct {
	FacilityID      id.ID
	ProductID       id.ID
	SourceType      SourceType
	SourceID        id.ID
	SourceItemID    id.ID
	BatchNumber     string
	ExpiryDate      *time.Time
	MovementDate    time.Time
	ReferenceNumber string
	CreatedBy       string
}

// NewReceivedMovement builds a "received" ledger entry.
func NewReceivedMovement(attrs MovementAttrs, qty types.Quantity) Movement {
	m := newMovement(attrs)
	m.MovementType = MovementReceived
	m.ReceivedQuantity = qty
	return m
}

// NewIssuedMovement builds an "issued" ledger entry.
func NewIssuedMovement(attrs MovementAttrs, qty types.Quantity) Movement {
	m := newMovement(attrs)
	m.MovementType = MovementIssued
	m.IssuedQuantity = qty
	return m
}

func newMovement(attrs MovementAttrs) Movement {
	date := attrs.MovementDate
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return Movement{
		ID:              id.New(),
		FacilityID:      attrs.FacilityID,
		ProductID:       attrs.ProductID,
		SourceType:      attrs.SourceType,
		SourceID:        attrs.SourceID,
		SourceItemID:    attrs.SourceItemID,
		BatchNumber:     attrs.BatchNumber,
		ExpiryDate:      attrs.ExpiryDate,
		MovementDate:    date,
		ReferenceNumber: attrs.ReferenceNumber,
		CreatedBy:       attrs.CreatedBy,
		CreatedAt:       time.Now().UTC(),
	}
}

// Quantity returns the non-zero side of the entry.
func (m *Movement) Quantity() types.Quantity {
	if m.MovementType == MovementReceived {
		return m.ReceivedQuantity
	}
	return m.IssuedQuantity
}

// SignedQuantity returns the quantity with sign: received positive, issued negative.
func (m *Movement) SignedQuantity() types.Quantity {
	if m.MovementType == MovementIssued {
		return m.IssuedQuantity.Neg()
	}
	return m.ReceivedQuantity
}
