// Package transfers provides the Transfer document: stock moved from one
// facility to another. Dispatch issues stock at the source; receipt creates
// lots at the destination. Each leg posts its own ledger entries.
package transfers

import (
	"context"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/inventory/allocation"
)

// Status is the transfer lifecycle state.
type Status string

const (
	StatusNew        Status = "new"
	StatusDispatched Status = "dispatched"
	StatusReceived   Status = "received"
)

// Transfer is one facility-to-facility stock movement document.
type Transfer struct {
	entity.BaseDocument

	Number string `db:"number" json:"number"`
	Status Status `db:"status" json:"status"`

	FromFacilityID id.ID `db:"from_facility_id" json:"fromFacilityId"`
	ToFacilityID   id.ID `db:"to_facility_id" json:"toFacilityId"`

	DispatchedAt *time.Time `db:"dispatched_at" json:"dispatchedAt,omitempty"`
	ReceivedAt   *time.Time `db:"received_at" json:"receivedAt,omitempty"`

	Notes *string `db:"notes" json:"notes,omitempty"`

	Lines []TransferLine `db:"-" json:"lines"`
}

// TransferLine is one product on a transfer. Allocations are filled at
// dispatch and drive the receipt: the destination receives exactly the
// batches the source issued.
type TransferLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	Unit      string         `db:"unit" json:"unit,omitempty"`

	Allocations []allocation.LotAllocation `db:"-" json:"allocations,omitempty"`
}

// NewTransfer creates a new transfer document.
func NewTransfer(fromFacilityID, toFacilityID id.ID) *Transfer {
	return &Transfer{
		BaseDocument:   entity.NewBaseDocument(),
		Status:         StatusNew,
		FromFacilityID: fromFacilityID,
		ToFacilityID:   toFacilityID,
		Lines:          make([]TransferLine, 0),
	}
}

// AddLine appends a product line.
func (t *Transfer) AddLine(productID id.ID, qty types.Quantity, unit string) {
	t.Lines = append(t.Lines, TransferLine{
		LineID:    id.New(),
		LineNo:    len(t.Lines) + 1,
		ProductID: productID,
		Quantity:  qty,
		Unit:      unit,
	})
}

// Validate implements entity.Validatable.
func (t *Transfer) Validate(ctx context.Context) error {
	if id.IsNil(t.FromFacilityID) {
		return apperror.NewValidation("source facility is required").
			WithDetail("field", "fromFacilityId")
	}
	if id.IsNil(t.ToFacilityID) {
		return apperror.NewValidation("destination facility is required").
			WithDetail("field", "toFacilityId")
	}
	if t.FromFacilityID == t.ToFacilityID {
		return apperror.NewValidation("source and destination must differ").
			WithDetail("field", "toFacilityId")
	}
	if len(t.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	for i, line := range t.Lines {
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
