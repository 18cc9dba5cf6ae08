// Package orders provides the Order document: stock requested from a
// supplier or higher-level store. Receiving a delivery creates lots and
// received ledger entries at the ordering facility.
package orders

import (
	"context"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusNew      Status = "new"
	StatusReceived Status = "received"
)

// Order is one replenishment document.
type Order struct {
	entity.BaseDocument

	Number string `db:"number" json:"number"`
	Status Status `db:"status" json:"status"`

	FacilityID id.ID `db:"facility_id" json:"facilityId"`

	// Supplier names the source of the delivery (free text, suppliers are
	// not a managed catalog)
	Supplier *string `db:"supplier" json:"supplier,omitempty"`

	OrderDate  time.Time  `db:"order_date" json:"orderDate"`
	ReceivedAt *time.Time `db:"received_at" json:"receivedAt,omitempty"`

	Lines []OrderLine `db:"-" json:"lines"`
}

// OrderLine is one ordered product.
type OrderLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	Unit      string         `db:"unit" json:"unit,omitempty"`

	// Filled at receipt, per delivered batch
	ReceivedQuantity types.Quantity `db:"received_quantity" json:"receivedQuantity"`
}

// DeliveryLine describes one delivered batch against an order line.
type DeliveryLine struct {
	LineID      id.ID          `json:"lineId"`
	BatchNumber string         `json:"batchNumber"`
	ExpiryDate  *time.Time     `json:"expiryDate,omitempty"`
	Quantity    types.Quantity `json:"quantity"`
	Barcode     string         `json:"barcode,omitempty"`
}

// NewOrder creates a new order document.
func NewOrder(facilityID id.ID) *Order {
	return &Order{
		BaseDocument: entity.NewBaseDocument(),
		Status:       StatusNew,
		FacilityID:   facilityID,
		OrderDate:    time.Now().UTC(),
		Lines:        make([]OrderLine, 0),
	}
}

// AddLine appends an ordered product.
func (o *Order) AddLine(productID id.ID, qty types.Quantity, unit string) {
	o.Lines = append(o.Lines, OrderLine{
		LineID:    id.New(),
		LineNo:    len(o.Lines) + 1,
		ProductID: productID,
		Quantity:  qty,
		Unit:      unit,
	})
}

// LineByID finds an order line.
func (o *Order) LineByID(lineID id.ID) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].LineID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if id.IsNil(o.FacilityID) {
		return apperror.NewValidation("facility is required").
			WithDetail("field", "facilityId")
	}
	if len(o.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	for i, line := range o.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}
