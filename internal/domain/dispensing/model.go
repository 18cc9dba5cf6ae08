// Package dispensing provides the Dispense document: stock issued to a
// patient or in bulk to an MOH program. Creating a dispense allocates and
// deducts lots immediately, in one transaction.
package dispensing

import (
	"context"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/inventory/allocation"
)

// DispenseType distinguishes patient dispensing from bulk MOH dispensing.
type DispenseType string

const (
	TypePatient DispenseType = "patient"
	TypeMOHBulk DispenseType = "moh_bulk"
)

// Dispense is one issue-to-consumer document.
type Dispense struct {
	entity.BaseDocument

	Type       DispenseType `db:"type" json:"type"`
	FacilityID id.ID        `db:"facility_id" json:"facilityId"`

	// Number is the human-readable reference (DSP-2026-00042)
	Number string `db:"number" json:"number"`

	DispenseDate time.Time `db:"dispense_date" json:"dispenseDate"`

	// PatientRef identifies the patient (OPD/clinic number), patient type only
	PatientRef *string `db:"patient_ref" json:"patientRef,omitempty"`

	// Recipient names the receiving program or department, MOH bulk only
	Recipient *string `db:"recipient" json:"recipient,omitempty"`

	Notes *string `db:"notes" json:"notes,omitempty"`

	Lines []DispenseLine `db:"-" json:"lines"`
}

// DispenseLine is one product on a dispense.
type DispenseLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`

	// Allocations record which lots satisfied the line
	Allocations []allocation.LotAllocation `db:"-" json:"allocations,omitempty"`
}

// NewDispense creates a new dispense document.
func NewDispense(dType DispenseType, facilityID id.ID) *Dispense {
	return &Dispense{
		BaseDocument: entity.NewBaseDocument(),
		Type:         dType,
		FacilityID:   facilityID,
		DispenseDate: time.Now().UTC(),
		Lines:        make([]DispenseLine, 0),
	}
}

// AddLine appends a product line.
func (d *Dispense) AddLine(productID id.ID, qty types.Quantity) {
	d.Lines = append(d.Lines, DispenseLine{
		LineID:    id.New(),
		LineNo:    len(d.Lines) + 1,
		ProductID: productID,
		Quantity:  qty,
	})
}

// Validate implements entity.Validatable.
func (d *Dispense) Validate(ctx context.Context) error {
	if d.Type != TypePatient && d.Type != TypeMOHBulk {
		return apperror.NewValidation("invalid dispense type").
			WithDetail("field", "type").
			WithDetail("value", string(d.Type))
	}

	if id.IsNil(d.FacilityID) {
		return apperror.NewValidation("facility is required").
			WithDetail("field", "facilityId")
	}

	if len(d.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range d.Lines {
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

// SourceType returns the ledger attribution for this dispense.
func (d *Dispense) SourceType() entity.SourceType {
	if d.Type == TypeMOHBulk {
		return entity.SourceMOHDispense
	}
	return entity.SourceDispense
}
