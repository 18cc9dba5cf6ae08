package dto

import (
	"time"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/dispensing"
	"medstock/internal/domain/orders"
	"medstock/internal/domain/transfers"
)

// DocumentLineRequest is one requested product quantity.
type DocumentLineRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	Unit      string         `json:"unit"`
}

// --- Dispense ---

// CreateDispenseRequest for patient or MOH bulk dispensing.
type CreateDispenseRequest struct {
	Type       string                `json:"type" binding:"required"`
	FacilityID string                `json:"facilityId" binding:"required,uuid"`
	PatientRef *string               `json:"patientRef"`
	Recipient  *string               `json:"recipient"`
	Notes      *string               `json:"notes"`
	Lines      []DocumentLineRequest `json:"lines" binding:"required,min=1"`
}

// ToDomain builds a new Dispense.
func (r CreateDispenseRequest) ToDomain() (*dispensing.Dispense, error) {
	facilityID, err := ParseID("facilityId", r.FacilityID)
	if err != nil {
		return nil, err
	}

	doc := dispensing.NewDispense(dispensing.DispenseType(r.Type), facilityID)
	doc.PatientRef = r.PatientRef
	doc.Recipient = r.Recipient
	doc.Notes = r.Notes

	for _, line := range r.Lines {
		productID, err := ParseID("lines", line.ProductID)
		if err != nil {
			return nil, err
		}
		doc.AddLine(productID, line.Quantity)
	}

	return doc, nil
}

// --- Transfer ---

// CreateTransferRequest for facility-to-facility movements.
type CreateTransferRequest struct {
	FromFacilityID string                `json:"fromFacilityId" binding:"required,uuid"`
	ToFacilityID   string                `json:"toFacilityId" binding:"required,uuid"`
	Notes          *string               `json:"notes"`
	Lines          []DocumentLineRequest `json:"lines" binding:"required,min=1"`
}

// ToDomain builds a new Transfer.
func (r CreateTransferRequest) ToDomain() (*transfers.Transfer, error) {
	fromID, err := ParseID("fromFacilityId", r.FromFacilityID)
	if err != nil {
		return nil, err
	}
	toID, err := ParseID("toFacilityId", r.ToFacilityID)
	if err != nil {
		return nil, err
	}

	doc := transfers.NewTransfer(fromID, toID)
	doc.Notes = r.Notes

	for _, line := range r.Lines {
		productID, err := ParseID("lines", line.ProductID)
		if err != nil {
			return nil, err
		}
		doc.AddLine(productID, line.Quantity, line.Unit)
	}

	return doc, nil
}

// --- Order ---

// CreateOrderRequest for replenishment orders.
type CreateOrderRequest struct {
	FacilityID string                `json:"facilityId" binding:"required,uuid"`
	Supplier   *string               `json:"supplier"`
	Lines      []DocumentLineRequest `json:"lines" binding:"required,min=1"`
}

// ToDomain builds a new Order.
func (r CreateOrderRequest) ToDomain() (*orders.Order, error) {
	facilityID, err := ParseID("facilityId", r.FacilityID)
	if err != nil {
		return nil, err
	}

	doc := orders.NewOrder(facilityID)
	doc.Supplier = r.Supplier

	for _, line := range r.Lines {
		productID, err := ParseID("lines", line.ProductID)
		if err != nil {
			return nil, err
		}
		doc.AddLine(productID, line.Quantity, line.Unit)
	}

	return doc, nil
}

// DeliveryLineRequest describes one delivered batch against an order line.
type DeliveryLineRequest struct {
	LineID      string         `json:"lineId" binding:"required,uuid"`
	BatchNumber string         `json:"batchNumber" binding:"required"`
	ExpiryDate  *time.Time     `json:"expiryDate"`
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	Barcode     string         `json:"barcode"`
}

// ReceiveDeliveryRequest posts a (possibly partial) delivery.
type ReceiveDeliveryRequest struct {
	Lines []DeliveryLineRequest `json:"lines" binding:"required,min=1"`
}

// ToDomain converts the delivery lines.
func (r ReceiveDeliveryRequest) ToDomain() ([]orders.DeliveryLine, error) {
	lines := make([]orders.DeliveryLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		lineID, err := ParseID("lineId", line.LineID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, orders.DeliveryLine{
			LineID:      lineID,
			BatchNumber: line.BatchNumber,
			ExpiryDate:  line.ExpiryDate,
			Quantity:    line.Quantity,
			Barcode:     line.Barcode,
		})
	}
	return lines, nil
}

// --- List queries ---

// DispenseListQuery filters dispense documents.
type DispenseListQuery struct {
	Type string     `form:"type" binding:"omitempty,oneof=patient moh_bulk"`
	From *time.Time `form:"from"`
	To   *time.Time `form:"to"`
	PageQuery
}

// ToFilter converts query parameters.
func (q DispenseListQuery) ToFilter(facilityID id.ID) dispensing.ListFilter {
	q.Defaults()

	f := dispensing.ListFilter{
		FacilityID: facilityID,
		Type:       dispensing.DispenseType(q.Type),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if q.From != nil {
		f.From = *q.From
	}
	if q.To != nil {
		f.To = *q.To
	}
	return f
}

// TransferListQuery filters transfer documents.
type TransferListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=new dispatched received"`
	PageQuery
}

// ToFilter converts query parameters.
func (q TransferListQuery) ToFilter(facilityID id.ID) transfers.ListFilter {
	q.Defaults()
	return transfers.ListFilter{
		FacilityID: facilityID,
		Status:     transfers.Status(q.Status),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
}

// OrderListQuery filters order documents.
type OrderListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=new received"`
	PageQuery
}

// ToFilter converts query parameters.
func (q OrderListQuery) ToFilter(facilityID id.ID) orders.ListFilter {
	q.Defaults()
	return orders.ListFilter{
		FacilityID: facilityID,
		Status:     orders.Status(q.Status),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
}
