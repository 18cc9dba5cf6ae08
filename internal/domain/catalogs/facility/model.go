// Package facility provides the Facility catalog.
// Facilities are the stock-holding locations: health facilities, central and
// regional warehouses. Every lot, movement and monthly report is scoped to
// exactly one facility.
package facility

import (
	"context"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
)

// FacilityType defines the kind of location.
type FacilityType string

const (
	TypeHealthFacility FacilityType = "health_facility"
	TypeWarehouse      FacilityType = "warehouse"
	TypeCentralStore   FacilityType = "central_store"
)

// Facility represents a stock-holding location.
type Facility struct {
	entity.Catalog

	// Type defines the facility category
	Type FacilityType `db:"type" json:"type"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// Region groups facilities for reporting rollups
	Region *string `db:"region" json:"region,omitempty"`

	// ContactPhone for transfer coordination
	ContactPhone *string `db:"contact_phone" json:"contactPhone,omitempty"`
}

// NewFacility creates a new Facility with required fields.
func NewFacility(code, name string, fType FacilityType) *Facility {
	return &Facility{
		Catalog: entity.NewCatalog(code, name),
		Type:    fType,
	}
}

// Validate implements entity.Validatable interface.
func (f *Facility) Validate(ctx context.Context) error {
	if err := f.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidFacilityType(f.Type) {
		return apperror.NewValidation("invalid facility type").
			WithDetail("field", "type").
			WithDetail("value", string(f.Type))
	}

	return nil
}

// CanHoldStock returns true if the facility may receive stock.
func (f *Facility) CanHoldStock() bool {
	return f.IsActive
}

func isValidFacilityType(t FacilityType) bool {
	switch t {
	case TypeHealthFacility, TypeWarehouse, TypeCentralStore:
		return true
	}
	return false
}
