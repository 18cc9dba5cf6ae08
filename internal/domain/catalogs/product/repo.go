package product

import (
	"context"

	"medstock/internal/core/id"
	"medstock/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindByBarcode retrieves a product by barcode.
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)

	// ListReportEligibleIDs returns IDs of active products that must appear
	// on monthly reports even with zero movements.
	ListReportEligibleIDs(ctx context.Context) ([]id.ID, error)
}
