package consumption

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/period"
)

// DefaultMonthsToAnalyze is how far back the AMC looks by default.
const DefaultMonthsToAnalyze = 12

// Service computes screened AMC and reorder levels.
type Service struct {
	repo Repository

	now func() time.Time
}

// NewService creates a new consumption service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// ComputeAMC screens the recent consumption history of the product at the
// facility and returns the damped average. The in-progress month is always
// excluded; monthsToAnalyze <= 0 selects the default window.
func (s *Service) ComputeAMC(ctx context.Context, facilityID, productID id.ID, monthsToAnalyze int) (*Result, error) {
	if monthsToAnalyze <= 0 {
		monthsToAnalyze = DefaultMonthsToAnalyze
	}

	// Only complete months feed the average: the series ends at the month
	// before the current one.
	current := period.FromTime(s.now())
	series, err := s.repo.MonthlySeries(ctx, facilityID, productID, current, monthsToAnalyze)
	if err != nil {
		return nil, fmt.Errorf("load consumption series: %w", err)
	}

	result := Screen(series)
	return &result, nil
}

// ReorderLevel returns AMC × leadTimeMonths, the threshold below which the
// product should be reordered.
func (s *Service) ReorderLevel(ctx context.Context, facilityID, productID id.ID, leadTimeMonths decimal.Decimal) (decimal.Decimal, error) {
	if leadTimeMonths.IsNegative() {
		return decimal.Zero, apperror.NewValidation("lead time cannot be negative").
			WithDetail("leadTimeMonths", leadTimeMonths.String())
	}

	result, err := s.ComputeAMC(ctx, facilityID, productID, DefaultMonthsToAnalyze)
	if err != nil {
		return decimal.Zero, err
	}
	return result.AMC.Mul(leadTimeMonths).Round(4), nil
}
