package consumption

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"medstock/internal/core/id"
	"medstock/internal/core/period"
)

func series(start string, quantities ...int64) []Month {
	p := period.MustParse(start)
	months := make([]Month, 0, len(quantities))
	for _, q := range quantities {
		months = append(months, Month{
			Period:   p,
			Quantity: decimal.NewFromInt(q),
		})
		p = p.Next()
	}
	return months
}

func TestScreen_SpikeExcludedAndSubstituted(t *testing.T) {
	// The canonical damping case: one 500-unit spike in an otherwise
	// steady ~105/month history.
	result := Screen(series("2026-01", 100, 110, 105, 500, 108))

	if !result.AMC.Equal(decimal.NewFromInt(106)) {
		t.Errorf("expected AMC 106, got %s", result.AMC)
	}

	if len(result.EligibleMonths) != 4 {
		t.Errorf("expected 4 eligible months, got %d", len(result.EligibleMonths))
	}
	if len(result.ExcludedMonths) != 1 || !result.ExcludedMonths[0].Equal(period.MustParse("2026-04")) {
		t.Errorf("expected 2026-04 excluded, got %v", result.ExcludedMonths)
	}

	// The spike month's effective value is the last accepted one (105).
	spike := result.Breakdown[3]
	if spike.Eligible {
		t.Error("spike month must be excluded")
	}
	if !spike.Effective.Equal(decimal.NewFromInt(105)) {
		t.Errorf("expected substitution 105, got %s", spike.Effective)
	}
	// |500 − 105| / 105 × 100 ≈ 376%
	if spike.DeviationPct.LessThan(decimal.NewFromInt(300)) {
		t.Errorf("expected deviation well above threshold, got %s", spike.DeviationPct)
	}

	// The month after the spike screens against [110, 105, 105(sub)],
	// baseline 106.67, deviation ~1.25%, eligible.
	after := result.Breakdown[4]
	if !after.Eligible {
		t.Error("post-spike month must stay eligible")
	}
	if after.DeviationPct.GreaterThan(decimal.NewFromInt(2)) {
		t.Errorf("expected small deviation, got %s", after.DeviationPct)
	}
}

func TestScreen_SubstitutionFeedsLaterBaselines(t *testing.T) {
	// Two consecutive spikes: both screen against baselines that already
	// contain the first substitution.
	result := Screen(series("2026-01", 100, 100, 100, 400, 400, 100))

	if len(result.ExcludedMonths) != 2 {
		t.Fatalf("expected 2 excluded months, got %d", len(result.ExcludedMonths))
	}
	// Both spikes substitute 100; the final month screens against
	// [100, 100, 100] and passes.
	if !result.Breakdown[4].Effective.Equal(decimal.NewFromInt(100)) {
		t.Errorf("second spike: expected substitution 100, got %s", result.Breakdown[4].Effective)
	}
	if !result.AMC.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected AMC 100, got %s", result.AMC)
	}
}

func TestScreen_ZeroBaseline(t *testing.T) {
	// Stockout history: three zero months, then consumption resumes.
	// Zero baseline + positive observation = 100% deviation, excluded, and
	// the substituted value is the last accepted (0).
	result := Screen(series("2026-01", 0, 0, 0, 50, 0))

	spike := result.Breakdown[3]
	if spike.Eligible {
		t.Error("resumption month must be excluded against a zero baseline")
	}
	if !spike.Effective.IsZero() {
		t.Errorf("expected substitution 0, got %s", spike.Effective)
	}

	// A zero month against a zero baseline deviates 0% and is eligible.
	last := result.Breakdown[4]
	if !last.Eligible {
		t.Error("zero month against zero baseline must be eligible")
	}
	if !result.AMC.IsZero() {
		t.Errorf("expected AMC 0, got %s", result.AMC)
	}
}

func TestScreen_ShortHistories(t *testing.T) {
	tests := []struct {
		name       string
		quantities []int64
		wantAMC    string
	}{
		{"no data", nil, "0"},
		{"single month", []int64{90}, "90"},
		{"two months", []int64{90, 110}, "100"},
		{"three months no screening", []int64{10, 1000, 10}, "340"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Screen(series("2026-01", tt.quantities...))
			want, _ := decimal.NewFromString(tt.wantAMC)
			if !result.AMC.Equal(want) {
				t.Errorf("expected AMC %s, got %s", want, result.AMC)
			}
			if len(result.ExcludedMonths) != 0 {
				t.Errorf("short history must not screen, excluded %v", result.ExcludedMonths)
			}
		})
	}
}

func TestScreen_ExactlyAtThresholdIsEligible(t *testing.T) {
	// Baseline 100, observation 170: deviation exactly 70%, not above the
	// threshold, so the month stays in.
	result := Screen(series("2026-01", 100, 100, 100, 170))

	last := result.Breakdown[3]
	if !last.Eligible {
		t.Errorf("70%% deviation must be eligible, got excluded with %s", last.DeviationPct)
	}
}

// --- Service ---

type fakeConsumptionRepo struct {
	months     []Month
	gotBefore  period.Period
	gotMonths  int
	gotProduct id.ID
}

func (f *fakeConsumptionRepo) MonthlySeries(ctx context.Context, facilityID, productID id.ID, before period.Period, months int) ([]Month, error) {
	f.gotBefore = before
	f.gotMonths = months
	f.gotProduct = productID
	return f.months, nil
}

func TestComputeAMC_ExcludesCurrentMonth(t *testing.T) {
	repo := &fakeConsumptionRepo{months: series("2026-01", 100, 110, 105, 500, 108)}
	svc := NewService(repo)
	svc.now = func() time.Time {
		return time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	}

	result, err := svc.ComputeAMC(context.Background(), id.New(), id.New(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !repo.gotBefore.Equal(period.MustParse("2026-06")) {
		t.Errorf("expected series to end before 2026-06, got %s", repo.gotBefore)
	}
	if repo.gotMonths != DefaultMonthsToAnalyze {
		t.Errorf("expected default window %d, got %d", DefaultMonthsToAnalyze, repo.gotMonths)
	}
	if !result.AMC.Equal(decimal.NewFromInt(106)) {
		t.Errorf("expected AMC 106, got %s", result.AMC)
	}
}

func TestReorderLevel(t *testing.T) {
	repo := &fakeConsumptionRepo{months: series("2026-01", 100, 110, 105, 500, 108)}
	svc := NewService(repo)
	svc.now = func() time.Time {
		return time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	}

	level, err := svc.ReorderLevel(context.Background(), id.New(), id.New(), decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !level.Equal(decimal.NewFromInt(212)) {
		t.Errorf("expected reorder level 212, got %s", level)
	}

	if _, err := svc.ReorderLevel(context.Background(), id.New(), id.New(), decimal.NewFromInt(-1)); err == nil {
		t.Error("expected error for negative lead time")
	}
}
