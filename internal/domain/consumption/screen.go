package consumption

import (
	"github.com/shopspring/decimal"
)

// DeviationThresholdPct is the screening cutoff: months deviating more than
// this from their rolling baseline are excluded.
var DeviationThresholdPct = decimal.NewFromInt(70)

var hundred = decimal.NewFromInt(100)

// Screen runs the sequential screening pass over months ordered oldest
// first. Screening is stateful: an excluded month's substituted value feeds
// the baselines of every later month.
//
// The first three months are accepted unconditionally (no baseline exists
// yet). From the fourth month on, each observation is compared against the
// mean of the three chronologically preceding effective values; a deviation
// above the threshold excludes it and substitutes the most recently accepted
// observation in its place.
func Screen(months []Month) Result {
	result := Result{
		Breakdown: make([]MonthBreakdown, 0, len(months)),
	}

	// Fewer than 4 months: nothing to screen against, simple average.
	if len(months) < 4 {
		var sum decimal.Decimal
		for _, m := range months {
			result.EligibleMonths = append(result.EligibleMonths, m.Period)
			result.Breakdown = append(result.Breakdown, MonthBreakdown{
				Period:    m.Period,
				Quantity:  m.Quantity,
				Effective: m.Quantity,
				Eligible:  true,
			})
			sum = sum.Add(m.Quantity)
		}
		if len(months) > 0 {
			result.AMC = sum.DivRound(decimal.NewFromInt(int64(len(months))), 4)
		}
		return result
	}

	effective := make([]decimal.Decimal, 0, len(months))
	lastAccepted := decimal.Zero

	for i, m := range months {
		row := MonthBreakdown{
			Period:   m.Period,
			Quantity: m.Quantity,
		}

		if i < 3 {
			row.Eligible = true
			row.Effective = m.Quantity
			lastAccepted = m.Quantity
		} else {
			baseline := mean3(effective[i-3 : i])
			row.DeviationPct = deviationPct(m.Quantity, baseline)

			if row.DeviationPct.GreaterThan(DeviationThresholdPct) {
				row.Eligible = false
				row.Effective = lastAccepted
			} else {
				row.Eligible = true
				row.Effective = m.Quantity
				lastAccepted = m.Quantity
			}
		}

		effective = append(effective, row.Effective)
		if row.Eligible {
			result.EligibleMonths = append(result.EligibleMonths, m.Period)
		} else {
			result.ExcludedMonths = append(result.ExcludedMonths, m.Period)
		}
		result.Breakdown = append(result.Breakdown, row)
	}

	// AMC = mean of the last up-to-3 effective values.
	window := 3
	if len(effective) < window {
		window = len(effective)
	}
	tail := effective[len(effective)-window:]
	var sum decimal.Decimal
	for _, v := range tail {
		sum = sum.Add(v)
	}
	result.AMC = sum.DivRound(decimal.NewFromInt(int64(window)), 4)

	return result
}

func mean3(values []decimal.Decimal) decimal.Decimal {
	sum := values[0].Add(values[1]).Add(values[2])
	return sum.Div(decimal.NewFromInt(3))
}

// deviationPct = |current − baseline| / baseline × 100. A zero baseline
// means 100% when anything was consumed, 0% otherwise.
func deviationPct(current, baseline decimal.Decimal) decimal.Decimal {
	if baseline.IsZero() {
		if current.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(baseline).Abs().Div(baseline).Mul(hundred)
}
