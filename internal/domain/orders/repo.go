package orders

import (
	"context"

	"medstock/internal/core/id"
	"medstock/internal/domain"
)

// ListFilter narrows order listings.
type ListFilter struct {
	FacilityID id.ID
	Status     Status
	Limit      int
	Offset     int
}

// Repository defines the interface for Order persistence.
type Repository interface {
	// Create inserts the document header.
	Create(ctx context.Context, o *Order) error

	// Update persists header changes.
	Update(ctx context.Context, o *Order) error

	// SaveLines replaces the document's lines.
	SaveLines(ctx context.Context, docID id.ID, lines []OrderLine) error

	// GetByID retrieves the header.
	GetByID(ctx context.Context, docID id.ID) (*Order, error)

	// GetForUpdate retrieves the header with a row lock.
	GetForUpdate(ctx context.Context, docID id.ID) (*Order, error)

	// GetLines retrieves lines.
	GetLines(ctx context.Context, docID id.ID) ([]OrderLine, error)

	// List retrieves order headers.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error)
}
