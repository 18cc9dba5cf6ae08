// Package consumption computes Average Monthly Consumption (AMC) from the
// monthly issued totals, with sequential anomaly screening: months deviating
// more than 70% from their rolling baseline are excluded and replaced by the
// last accepted value before averaging.
package consumption

import (
	"github.com/shopspring/decimal"

	"medstock/internal/core/id"
	"medstock/internal/core/period"
)

// Month is one historical consumption observation.
type Month struct {
	FacilityID id.ID           `db:"facility_id" json:"facilityId"`
	ProductID  id.ID           `db:"product_id" json:"productId"`
	Period     period.Period   `db:"period" json:"period"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
}

// MonthBreakdown explains the screening decision for one month.
type MonthBreakdown struct {
	Period period.Period `json:"period"`

	// Quantity is the observed consumption
	Quantity decimal.Decimal `json:"quantity"`

	// Effective is the value used in averaging: the observation itself when
	// eligible, the substituted value when excluded
	Effective decimal.Decimal `json:"effective"`

	Eligible bool `json:"eligible"`

	// DeviationPct vs the rolling 3-month baseline; zero for the first
	// three months, which are never screened
	DeviationPct decimal.Decimal `json:"deviationPct"`
}

// Result is the outcome of an AMC computation.
type Result struct {
	AMC decimal.Decimal `json:"amc"`

	EligibleMonths []period.Period `json:"eligibleMonths"`
	ExcludedMonths []period.Period `json:"excludedMonths"`

	Breakdown []MonthBreakdown `json:"breakdown"`
}
