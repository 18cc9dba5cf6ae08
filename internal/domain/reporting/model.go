// Package reporting implements monthly LMIS report generation: per-product
// opening/received/issued/adjustments/closing rows aggregated from the
// movement ledger, one report per facility per period.
package reporting

import (
	"context"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/period"
	"medstock/internal/core/types"
)

// Status is the report lifecycle state. Transitions are plain setters.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
)

// MonthlyReport is the report header, unique per (facility, period).
type MonthlyReport struct {
	entity.BaseDocument

	FacilityID id.ID         `db:"facility_id" json:"facilityId"`
	Period     period.Period `db:"period" json:"period"`
	Status     Status        `db:"status" json:"status"`

	// GeneratedAt is when the aggregation last ran (regeneration updates it)
	GeneratedAt time.Time `db:"generated_at" json:"generatedAt"`

	SubmittedAt *time.Time `db:"submitted_at" json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approvedAt,omitempty"`

	Items []*ReportItem `db:"-" json:"items,omitempty"`
}

// NewMonthlyReport creates a draft report header.
func NewMonthlyReport(facilityID id.ID, p period.Period) *MonthlyReport {
	r := &MonthlyReport{
		BaseDocument: entity.NewBaseDocument(),
		FacilityID:   facilityID,
		Period:       p,
		Status:       StatusDraft,
		GeneratedAt:  time.Now().UTC(),
	}
	return r
}

// Validate implements entity.Validatable.
func (r *MonthlyReport) Validate(ctx context.Context) error {
	if id.IsNil(r.FacilityID) {
		return apperror.NewValidation("facility is required").WithDetail("field", "facilityId")
	}
	if r.Period.IsZero() {
		return apperror.NewValidation("period is required").WithDetail("field", "period")
	}
	return nil
}

// IsApproved reports whether the report is locked for regeneration.
func (r *MonthlyReport) IsApproved() bool {
	return r.Status == StatusApproved
}

// ReportItem is one product row on a monthly report, unique per
// (report, product). ClosingBalance is always derived, never set directly.
type ReportItem struct {
	ID       id.ID `db:"id" json:"id"`
	ReportID id.ID `db:"report_id" json:"reportId"`

	ProductID id.ID `db:"product_id" json:"productId"`

	OpeningBalance      types.Quantity `db:"opening_balance" json:"openingBalance"`
	StockReceived       types.Quantity `db:"stock_received" json:"stockReceived"`
	StockIssued         types.Quantity `db:"stock_issued" json:"stockIssued"`
	PositiveAdjustments types.Quantity `db:"positive_adjustments" json:"positiveAdjustments"`
	NegativeAdjustments types.Quantity `db:"negative_adjustments" json:"negativeAdjustments"`
	ClosingBalance      types.Quantity `db:"closing_balance" json:"closingBalance"`

	StockoutDays int `db:"stockout_days" json:"stockoutDays"`
}

// NewReportItem creates a row and derives its closing balance.
func NewReportItem(reportID, productID id.ID, opening, received, issued types.Quantity) *ReportItem {
	item := &ReportItem{
		ID:             id.New(),
		ReportID:       reportID,
		ProductID:      productID,
		OpeningBalance: opening,
		StockReceived:  received,
		StockIssued:    issued,
	}
	item.RecomputeClosing()
	return item
}

// RecomputeClosing re-derives the closing balance. Any mutation of the item
// must call this; the field is never edited on its own.
func (i *ReportItem) RecomputeClosing() {
	i.ClosingBalance = i.OpeningBalance + i.StockReceived - i.StockIssued +
		i.PositiveAdjustments - i.NegativeAdjustments
}
