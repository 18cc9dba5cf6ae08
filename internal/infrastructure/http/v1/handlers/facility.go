package handlers

import (
	"medstock/internal/domain/catalogs/facility"
	"medstock/internal/infrastructure/http/v1/dto"
)

// FacilityHandler serves the facility catalog.
type FacilityHandler = CatalogHandler[
	*facility.Facility,
	dto.CreateFacilityRequest,
	dto.UpdateFacilityRequest,
]

// NewFacilityHandler creates a new facility handler.
func NewFacilityHandler(base *BaseHandler, service *facility.Service) *FacilityHandler {
	config := CatalogHandlerConfig[
		*facility.Facility,
		dto.CreateFacilityRequest,
		dto.UpdateFacilityRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "facility",

		MapCreateDTO: func(req dto.CreateFacilityRequest) (*facility.Facility, error) {
			return req.ToDomain(), nil
		},

		MapUpdateDTO: func(req dto.UpdateFacilityRequest, existing *facility.Facility) *facility.Facility {
			req.Apply(existing)
			return existing
		},
	}

	return NewCatalogHandler(base, config)
}
