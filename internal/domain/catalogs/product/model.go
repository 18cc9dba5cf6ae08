// Package product provides the Product catalog.
// Products are the pharmaceutical items tracked per batch: medicines,
// consumables and test kits.
package product

import (
	"context"

	"github.com/shopspring/decimal"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
)

// Category groups products for reporting.
type Category string

const (
	CategoryMedicine   Category = "medicine"
	CategoryConsumable Category = "consumable"
	CategoryTestKit    Category = "test_kit"
	CategoryVaccine    Category = "vaccine"
)

// Product represents one tracked pharmaceutical item.
type Product struct {
	entity.Catalog

	// Category groups the product for reporting
	Category Category `db:"category" json:"category"`

	// Unit is the default unit of measure (tablet, vial, bottle)
	Unit string `db:"unit" json:"unit"`

	// Barcode is the product barcode (EAN-13, GTIN)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// Strength/dosage description (e.g. "500mg")
	Strength *string `db:"strength" json:"strength,omitempty"`

	// TrackExpiry requires an expiry date on every received batch
	TrackExpiry bool `db:"track_expiry" json:"trackExpiry"`

	// ReportEligible includes the product on monthly reports even with
	// zero movements for the period
	ReportEligible bool `db:"report_eligible" json:"reportEligible"`

	// LeadTimeMonths is the resupply lead time used for reorder levels
	LeadTimeMonths decimal.Decimal `db:"lead_time_months" json:"leadTimeMonths"`

	// Description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name, unit string, category Category) *Product {
	return &Product{
		Catalog:        entity.NewCatalog(code, name),
		Category:       category,
		Unit:           unit,
		TrackExpiry:    true,
		ReportEligible: true,
		LeadTimeMonths: decimal.NewFromInt(2),
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidCategory(p.Category) {
		return apperror.NewValidation("invalid product category").
			WithDetail("field", "category").
			WithDetail("value", string(p.Category))
	}

	if p.Unit == "" {
		return apperror.NewValidation("unit is required").
			WithDetail("field", "unit")
	}

	if p.LeadTimeMonths.IsNegative() {
		return apperror.NewValidation("lead time cannot be negative").
			WithDetail("field", "leadTimeMonths")
	}

	return nil
}

func isValidCategory(c Category) bool {
	switch c {
	case CategoryMedicine, CategoryConsumable, CategoryTestKit, CategoryVaccine:
		return true
	}
	return false
}
