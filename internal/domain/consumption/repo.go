package consumption

import (
	"context"

	"medstock/internal/core/id"
	"medstock/internal/core/period"
)

// Repository reads historical consumption. Rows come from the monthly
// reports' issued totals; this package never writes them.
type Repository interface {
	// MonthlySeries returns up to months consumption rows for the product
	// at the facility, for periods strictly before `before`, oldest first.
	// Gaps (months with no report) are simply absent from the series.
	MonthlySeries(ctx context.Context, facilityID, productID id.ID, before period.Period, months int) ([]Month, error)
}
