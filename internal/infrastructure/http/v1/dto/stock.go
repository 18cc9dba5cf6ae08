package dto

import (
	"time"

	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/ledger"
)

// ReceiveStockRequest registers one incoming batch.
type ReceiveStockRequest struct {
	FacilityID  string         `json:"facilityId" binding:"required,uuid"`
	ProductID   string         `json:"productId" binding:"required,uuid"`
	BatchNumber string         `json:"batchNumber" binding:"required"`
	ExpiryDate  *time.Time     `json:"expiryDate"`
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	Unit        string         `json:"unit"`
	Barcode     string         `json:"barcode"`
}

// ToInput converts the request.
func (r ReceiveStockRequest) ToInput() (lot.ReceiveInput, error) {
	facilityID, err := ParseID("facilityId", r.FacilityID)
	if err != nil {
		return lot.ReceiveInput{}, err
	}
	productID, err := ParseID("productId", r.ProductID)
	if err != nil {
		return lot.ReceiveInput{}, err
	}
	return lot.ReceiveInput{
		FacilityID:  facilityID,
		ProductID:   productID,
		BatchNumber: r.BatchNumber,
		ExpiryDate:  r.ExpiryDate,
		Quantity:    r.Quantity,
		Unit:        r.Unit,
		Barcode:     r.Barcode,
	}, nil
}

// AdjustLotRequest applies a signed correction to a lot.
type AdjustLotRequest struct {
	Delta  types.Quantity `json:"delta" binding:"required"`
	Reason string         `json:"reason"`
}

// LotListQuery filters stock-on-hand views.
type LotListQuery struct {
	ProductID     string     `form:"productId" binding:"omitempty,uuid"`
	ExpiresBefore *time.Time `form:"expiresBefore"`
	IncludeEmpty  bool       `form:"includeEmpty"`
	PageQuery
}

// ToFilter converts query parameters.
func (q LotListQuery) ToFilter(facilityID id.ID) (lot.ListFilter, error) {
	q.Defaults()

	f := lot.ListFilter{
		FacilityID:    facilityID,
		ExpiresBefore: q.ExpiresBefore,
		IncludeEmpty:  q.IncludeEmpty,
		Limit:         q.Limit,
		Offset:        q.Offset,
	}

	if q.ProductID != "" {
		productID, err := ParseID("productId", q.ProductID)
		if err != nil {
			return lot.ListFilter{}, err
		}
		f.ProductID = productID
	}

	return f, nil
}

// MovementListQuery filters the movement ledger history.
type MovementListQuery struct {
	ProductID    string     `form:"productId" binding:"omitempty,uuid"`
	MovementType string     `form:"movementType" binding:"omitempty,oneof=received issued"`
	SourceType   string     `form:"sourceType" binding:"omitempty,oneof=transfer order dispense moh_dispense adjustment"`
	From         *time.Time `form:"from"`
	To           *time.Time `form:"to"`
	PageQuery
}

// ToFilter converts query parameters.
func (q MovementListQuery) ToFilter(facilityID id.ID) (ledger.Filter, error) {
	q.Defaults()

	f := ledger.Filter{
		FacilityID:   facilityID,
		MovementType: entity.MovementType(q.MovementType),
		SourceType:   entity.SourceType(q.SourceType),
		Limit:        q.Limit,
		Offset:       q.Offset,
	}
	if q.From != nil {
		f.From = *q.From
	}
	if q.To != nil {
		f.To = *q.To
	}

	if q.ProductID != "" {
		productID, err := ParseID("productId", q.ProductID)
		if err != nil {
			return ledger.Filter{}, err
		}
		f.ProductID = productID
	}

	return f, nil
}
