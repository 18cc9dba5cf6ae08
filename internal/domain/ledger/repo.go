package ledger

import (
	"context"
	"time"

	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain"
)

// Filter narrows movement history queries.
type Filter struct {
	FacilityID   id.ID
	ProductID    id.ID // zero value = all products
	MovementType entity.MovementType
	SourceType   entity.SourceType
	From         time.Time // inclusive
	To           time.Time // exclusive
	Limit        int
	Offset       int
}

// Repository defines the interface for Movement persistence.
// The table is append-only: inserts and reads, never updates or deletes.
type Repository interface {
	// Insert appends one ledger entry.
	Insert(ctx context.Context, m *entity.Movement) error

	// InsertBatch appends many entries at once (COPY-based).
	InsertBatch(ctx context.Context, movements []*entity.Movement) error

	// SumByTypeAndPeriod sums quantities of the given type for the product
	// at the facility over [from, to).
	SumByTypeAndPeriod(ctx context.Context, facilityID, productID id.ID, mType entity.MovementType, from, to time.Time) (types.Quantity, error)

	// ProductIDsWithMovements returns distinct products with any movement at
	// the facility over [from, to).
	ProductIDsWithMovements(ctx context.Context, facilityID id.ID, from, to time.Time) ([]id.ID, error)

	// List retrieves movement history for audit browsing.
	List(ctx context.Context, filter Filter) (domain.ListResult[*entity.Movement], error)
}
