// Package period provides the reporting period value type (calendar month).
// Reports, consumption rows and ledger aggregations are all keyed by Period.
package period

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"medstock/internal/core/apperror"
)

// Period identifies one calendar month (the LMIS reporting granularity).
type Period struct {
	Year  int
	Month time.Month
}

// Parse parses a strict "YYYY-MM" string.
// Returns an INVALID_PERIOD AppError on malformed input or out-of-range values.
func Parse(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, apperror.NewInvalidPeriod(s)
	}
	p := Period{Year: t.Year(), Month: t.Month()}
	if p.Year < 2000 || p.Year > 2100 {
		return Period{}, apperror.NewInvalidPeriod(s)
	}
	return p, nil
}

// MustParse parses a period string, panics on error. Use only in tests.
func MustParse(s string) Period {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// FromTime returns the period containing t (in UTC).
func FromTime(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: u.Month()}
}

// Current returns the period containing now.
func Current() Period {
	return FromTime(time.Now())
}

// String formats as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start returns the first instant of the period (UTC).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the next period.
// Ledger sums use the half-open range [Start, End).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	return FromTime(p.End())
}

// Prev returns the preceding calendar month.
func (p Period) Prev() Period {
	return FromTime(p.Start().AddDate(0, -1, 0))
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Equal reports whether p and other are the same month.
func (p Period) Equal(other Period) bool {
	return p.Year == other.Year && p.Month == other.Month
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(p.Start()) && u.Before(p.End())
}

// IsComplete reports whether the period has fully elapsed relative to ref.
// The AMC calculator only accepts complete months.
func (p Period) IsComplete(ref time.Time) bool {
	return !ref.UTC().Before(p.End())
}

// IsZero reports whether p is the zero value.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// MarshalJSON encodes as a "YYYY-MM" string.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a "YYYY-MM" string.
func (p *Period) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperror.NewInvalidPeriod(string(data))
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value stores the period as its first day (DATE column).
func (p Period) Value() (driver.Value, error) {
	return p.Start(), nil
}

// Scan reads a period from a DATE/TIMESTAMP column or a "YYYY-MM" string.
func (p *Period) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Period{}
		return nil
	case time.Time:
		*p = FromTime(v)
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	default:
		return fmt.Errorf("unsupported type for Period: %T", src)
	}
}
