package catalog_repo

import (
	"medstock/internal/domain/catalogs/facility"
	"medstock/internal/infrastructure/storage/postgres"
)

const facilityTable = "cat_facilities"

// FacilityRepo implements facility.Repository.
type FacilityRepo struct {
	*BaseCatalogRepo[*facility.Facility]
}

// NewFacilityRepo creates a new facility repository.
func NewFacilityRepo(txManager *postgres.TxManager) *FacilityRepo {
	return &FacilityRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			facilityTable,
			postgres.ExtractDBColumns[facility.Facility](),
			func() *facility.Facility { return &facility.Facility{} },
		),
	}
}
