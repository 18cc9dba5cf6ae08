package lot

import (
	"context"
	"time"

	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain"
)

// ListFilter narrows lot listings for stock-on-hand views.
type ListFilter struct {
	FacilityID    id.ID
	ProductID     id.ID // zero value = all products
	ExpiresBefore *time.Time
	IncludeEmpty  bool
	Limit         int
	Offset        int
}

// Repository defines the interface for Lot persistence.
//
// Mutating methods must be called inside a transaction; FindIssuable locks
// the returned rows (FOR UPDATE) so concurrent allocations serialize on them.
type Repository interface {
	// Create inserts a new lot.
	Create(ctx context.Context, l *entity.Lot) error

	// GetByID retrieves a lot.
	GetByID(ctx context.Context, lotID id.ID) (*entity.Lot, error)

	// GetForUpdate retrieves a lot with a row lock.
	GetForUpdate(ctx context.Context, lotID id.ID) (*entity.Lot, error)

	// GetByBatchForUpdate locks and returns the lot matching
	// (facility, product, batch), or a not-found error.
	GetByBatchForUpdate(ctx context.Context, facilityID, productID id.ID, batchNumber string) (*entity.Lot, error)

	// FindIssuable returns lots with quantity > 0 for the product at the
	// facility, ordered expiry ASC NULLS LAST then id ASC, rows locked.
	FindIssuable(ctx context.Context, facilityID, productID id.ID) ([]*entity.Lot, error)

	// UpdateQuantity persists a new quantity for the lot.
	UpdateQuantity(ctx context.Context, lotID id.ID, qty types.Quantity) error

	// TotalQuantity sums on-hand stock for the product at the facility.
	TotalQuantity(ctx context.Context, facilityID, productID id.ID) (types.Quantity, error)

	// List retrieves lots for stock-on-hand views.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*entity.Lot], error)
}
