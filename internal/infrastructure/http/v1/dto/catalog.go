package dto

import (
	"github.com/shopspring/decimal"

	"medstock/internal/domain/catalogs/facility"
	"medstock/internal/domain/catalogs/product"
)

// --- Facility ---

// CreateFacilityRequest for creating facilities.
type CreateFacilityRequest struct {
	Code         string  `json:"code"`
	Name         string  `json:"name" binding:"required"`
	Type         string  `json:"type" binding:"required"`
	Address      *string `json:"address"`
	Region       *string `json:"region"`
	ContactPhone *string `json:"contactPhone"`
}

// ToDomain builds a new Facility.
func (r CreateFacilityRequest) ToDomain() *facility.Facility {
	f := facility.NewFacility(r.Code, r.Name, facility.FacilityType(r.Type))
	f.Address = r.Address
	f.Region = r.Region
	f.ContactPhone = r.ContactPhone
	return f
}

// UpdateFacilityRequest for updating facilities. Nil fields stay unchanged.
type UpdateFacilityRequest struct {
	Name         *string `json:"name"`
	Type         *string `json:"type"`
	Address      *string `json:"address"`
	Region       *string `json:"region"`
	ContactPhone *string `json:"contactPhone"`
	Version      int     `json:"version" binding:"required,min=1"`
}

// Apply copies the edited fields onto the facility.
func (r UpdateFacilityRequest) Apply(f *facility.Facility) {
	if r.Name != nil {
		f.Name = *r.Name
	}
	if r.Type != nil {
		f.Type = facility.FacilityType(*r.Type)
	}
	if r.Address != nil {
		f.Address = r.Address
	}
	if r.Region != nil {
		f.Region = r.Region
	}
	if r.ContactPhone != nil {
		f.ContactPhone = r.ContactPhone
	}
	f.Version = r.Version
}

// --- Product ---

// CreateProductRequest for creating products.
type CreateProductRequest struct {
	Code           string           `json:"code"`
	Name           string           `json:"name" binding:"required"`
	Category       string           `json:"category" binding:"required"`
	Unit           string           `json:"unit" binding:"required"`
	Barcode        *string          `json:"barcode"`
	Strength       *string          `json:"strength"`
	TrackExpiry    *bool            `json:"trackExpiry"`
	ReportEligible *bool            `json:"reportEligible"`
	LeadTimeMonths *decimal.Decimal `json:"leadTimeMonths"`
	Description    *string          `json:"description"`
}

// ToDomain builds a new Product.
func (r CreateProductRequest) ToDomain() *product.Product {
	p := product.NewProduct(r.Code, r.Name, r.Unit, product.Category(r.Category))
	p.Barcode = r.Barcode
	p.Strength = r.Strength
	p.Description = r.Description
	if r.TrackExpiry != nil {
		p.TrackExpiry = *r.TrackExpiry
	}
	if r.ReportEligible != nil {
		p.ReportEligible = *r.ReportEligible
	}
	if r.LeadTimeMonths != nil {
		p.LeadTimeMonths = *r.LeadTimeMonths
	}
	return p
}

// UpdateProductRequest for updating products. Nil fields stay unchanged.
type UpdateProductRequest struct {
	Name           *string          `json:"name"`
	Category       *string          `json:"category"`
	Unit           *string          `json:"unit"`
	Barcode        *string          `json:"barcode"`
	Strength       *string          `json:"strength"`
	TrackExpiry    *bool            `json:"trackExpiry"`
	ReportEligible *bool            `json:"reportEligible"`
	LeadTimeMonths *decimal.Decimal `json:"leadTimeMonths"`
	Description    *string          `json:"description"`
	Version        int              `json:"version" binding:"required,min=1"`
}

// Apply copies the edited fields onto the product.
func (r UpdateProductRequest) Apply(p *product.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Category != nil {
		p.Category = product.Category(*r.Category)
	}
	if r.Unit != nil {
		p.Unit = *r.Unit
	}
	if r.Barcode != nil {
		p.Barcode = r.Barcode
	}
	if r.Strength != nil {
		p.Strength = r.Strength
	}
	if r.TrackExpiry != nil {
		p.TrackExpiry = *r.TrackExpiry
	}
	if r.ReportEligible != nil {
		p.ReportEligible = *r.ReportEligible
	}
	if r.LeadTimeMonths != nil {
		p.LeadTimeMonths = *r.LeadTimeMonths
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	p.Version = r.Version
}
