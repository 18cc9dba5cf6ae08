package dto

import (
	"github.com/shopspring/decimal"

	"medstock/internal/core/apperror"
	"medstock/internal/core/period"
	"medstock/internal/core/types"
	"medstock/internal/domain/reporting"
)

// GenerateReportRequest asks for a monthly report. Force regenerates an
// existing draft; Async enqueues the work for the background worker.
type GenerateReportRequest struct {
	Period string `json:"period" binding:"required"`
	Force  bool   `json:"force"`
	Async  bool   `json:"async"`
}

// ParsePeriod validates the YYYY-MM value.
func (r GenerateReportRequest) ParsePeriod() (period.Period, error) {
	p, err := period.Parse(r.Period)
	if err != nil {
		return period.Period{}, apperror.NewValidation("invalid period").
			WithDetail("period", r.Period).
			WithCause(err)
	}
	return p, nil
}

// UpdateReportItemRequest edits the manual columns of a report row.
// Omitted fields stay unchanged.
type UpdateReportItemRequest struct {
	PositiveAdjustments *types.Quantity `json:"positiveAdjustments"`
	NegativeAdjustments *types.Quantity `json:"negativeAdjustments"`
	StockoutDays        *int            `json:"stockoutDays" binding:"omitempty,gte=0,lte=31"`
}

// ToEdit converts to the domain edit.
func (r UpdateReportItemRequest) ToEdit() reporting.ItemEdit {
	return reporting.ItemEdit{
		PositiveAdjustments: r.PositiveAdjustments,
		NegativeAdjustments: r.NegativeAdjustments,
		StockoutDays:        r.StockoutDays,
	}
}

// AMCQuery tunes the consumption analysis window.
type AMCQuery struct {
	Months   int    `form:"months" binding:"omitempty,gte=1,lte=36"`
	LeadTime string `form:"leadTime"`
}

// ParseLeadTime returns the override lead time in months, or nil when the
// product default should apply.
func (q AMCQuery) ParseLeadTime() (*decimal.Decimal, error) {
	if q.LeadTime == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(q.LeadTime)
	if err != nil {
		return nil, apperror.NewValidation("invalid lead time").
			WithDetail("leadTime", q.LeadTime).
			WithCause(err)
	}
	return &d, nil
}
