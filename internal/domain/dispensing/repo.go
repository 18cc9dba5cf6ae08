package dispensing

import (
	"context"
	"time"

	"medstock/internal/core/id"
	"medstock/internal/domain"
)

// ListFilter narrows dispense listings.
type ListFilter struct {
	FacilityID id.ID
	Type       DispenseType
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// Repository defines the interface for Dispense persistence.
type Repository interface {
	// Create inserts the document header.
	Create(ctx context.Context, d *Dispense) error

	// SaveLines replaces the document's lines and their lot allocations.
	SaveLines(ctx context.Context, docID id.ID, lines []DispenseLine) error

	// GetByID retrieves the header.
	GetByID(ctx context.Context, docID id.ID) (*Dispense, error)

	// GetLines retrieves lines with allocations.
	GetLines(ctx context.Context, docID id.ID) ([]DispenseLine, error)

	// List retrieves dispense headers.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Dispense], error)
}
