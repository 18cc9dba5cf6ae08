package transfers

import (
	"context"

	"medstock/internal/core/id"
	"medstock/internal/domain"
)

// ListFilter narrows transfer listings.
type ListFilter struct {
	FacilityID id.ID // matches either side of the transfer
	Status     Status
	Limit      int
	Offset     int
}

// Repository defines the interface for Transfer persistence.
type Repository interface {
	// Create inserts the document header.
	Create(ctx context.Context, t *Transfer) error

	// Update persists header changes (status, timestamps).
	Update(ctx context.Context, t *Transfer) error

	// SaveLines replaces the document's lines and their allocations.
	SaveLines(ctx context.Context, docID id.ID, lines []TransferLine) error

	// GetByID retrieves the header.
	GetByID(ctx context.Context, docID id.ID) (*Transfer, error)

	// GetForUpdate retrieves the header with a row lock.
	GetForUpdate(ctx context.Context, docID id.ID) (*Transfer, error)

	// GetLines retrieves lines with allocations.
	GetLines(ctx context.Context, docID id.ID) ([]TransferLine, error)

	// List retrieves transfer headers.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transfer], error)
}
