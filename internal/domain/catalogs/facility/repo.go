package facility

import (
	"medstock/internal/domain"
)

// Repository defines the interface for Facility persistence.
type Repository interface {
	domain.CatalogRepository[*Facility]
}
