package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/period"
	"medstock/internal/core/tx"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/pkg/logger"
)

// LedgerReader is the slice of the movement ledger the aggregator reads.
type LedgerReader interface {
	PeriodTotals(ctx context.Context, facilityID, productID id.ID, p period.Period) (received, issued types.Quantity, err error)
	ProductIDsWithMovements(ctx context.Context, facilityID id.ID, p period.Period) ([]id.ID, error)
}

// StockReader supplies current lot totals for the first-report opening
// balance fallback.
type StockReader interface {
	TotalQuantity(ctx context.Context, facilityID, productID id.ID) (types.Quantity, error)
}

// EligibleProducts supplies the catalog products that must appear on every
// report even with zero movements.
type EligibleProducts interface {
	ListReportEligibleIDs(ctx context.Context) ([]id.ID, error)
}

// Auditor records before/after snapshots of manual report edits.
type Auditor interface {
	RecordChange(ctx context.Context, entityType string, entityID id.ID, before, after any) error
}

// Service generates and maintains monthly reports.
type Service struct {
	repo      Repository
	jobs      JobRepository
	ledger    LedgerReader
	stock     StockReader
	products  EligibleProducts
	txManager tx.Manager
	auditor   Auditor // optional

	// now is swappable for tests
	now func() time.Time
}

// NewService creates a new reporting service. auditor may be nil.
func NewService(repo Repository, jobs JobRepository, ledger LedgerReader, stock StockReader, products EligibleProducts, txManager tx.Manager, auditor Auditor) *Service {
	return &Service{
		repo:      repo,
		jobs:      jobs,
		ledger:    ledger,
		stock:     stock,
		products:  products,
		txManager: txManager,
		auditor:   auditor,
		now:       time.Now,
	}
}

// Generate aggregates the ledger into a monthly report for (facility,
// period). The whole run executes in one transaction, so a mid-run failure
// leaves no partial report behind.
//
// An existing report fails the call unless force is set, in which case its
// rows are discarded and rebuilt from the ledger. Approved reports are never
// regenerated.
func (s *Service) Generate(ctx context.Context, facilityID id.ID, p period.Period, force bool) (*MonthlyReport, error) {
	if !p.IsComplete(s.now()) {
		return nil, apperror.NewBusinessRule(apperror.CodeInvalidPeriod,
			fmt.Sprintf("period %s has not ended yet", p)).
			WithDetail("period", p.String())
	}

	var report *MonthlyReport
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetReportForPeriod(ctx, facilityID, p)
		switch {
		case err == nil:
			if !force {
				return apperror.NewReportExists(facilityID.String(), p.String())
			}
			if existing.IsApproved() {
				return apperror.NewPeriodClosed(p.String()).
					WithDetail("report_id", existing.ID.String())
			}
			if err := s.repo.DeleteItems(ctx, existing.ID); err != nil {
				return fmt.Errorf("discard report items: %w", err)
			}
			existing.GeneratedAt = s.now().UTC()
			existing.Status = StatusDraft
			existing.Touch()
			if err := s.repo.UpdateReport(ctx, existing); err != nil {
				return fmt.Errorf("update report header: %w", err)
			}
			report = existing

		case apperror.IsNotFound(err):
			report = NewMonthlyReport(facilityID, p)
			if err := s.repo.CreateReport(ctx, report); err != nil {
				return fmt.Errorf("create report header: %w", err)
			}

		default:
			return fmt.Errorf("lookup report: %w", err)
		}

		items, err := s.buildItems(ctx, report)
		if err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, items); err != nil {
			return fmt.Errorf("insert report items: %w", err)
		}
		report.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "monthly report generated",
		"facility_id", facilityID.String(),
		"period", p.String(),
		"items", len(report.Items),
		"force", force)

	return report, nil
}

// buildItems computes one row per product: every product with a movement in
// the period plus every report-eligible catalog product, zero rows included.
func (s *Service) buildItems(ctx context.Context, report *MonthlyReport) ([]*ReportItem, error) {
	moved, err := s.ledger.ProductIDsWithMovements(ctx, report.FacilityID, report.Period)
	if err != nil {
		return nil, fmt.Errorf("products with movements: %w", err)
	}
	eligible, err := s.products.ListReportEligibleIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("eligible products: %w", err)
	}

	productIDs := make(map[id.ID]struct{}, len(moved)+len(eligible))
	for _, pid := range moved {
		productIDs[pid] = struct{}{}
	}
	for _, pid := range eligible {
		productIDs[pid] = struct{}{}
	}

	ordered := make([]id.ID, 0, len(productIDs))
	for pid := range productIDs {
		ordered = append(ordered, pid)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	// Opening balances come from the prior report's closings when one
	// exists. The lot-total fallback applies only to the very first report.
	var priorClosings map[id.ID]types.Quantity
	prior, err := s.repo.GetReportForPeriod(ctx, report.FacilityID, report.Period.Prev())
	switch {
	case err == nil:
		priorClosings = make(map[id.ID]types.Quantity, len(prior.Items))
		for _, item := range prior.Items {
			priorClosings[item.ProductID] = item.ClosingBalance
		}
	case apperror.IsNotFound(err):
		priorClosings = nil
	default:
		return nil, fmt.Errorf("lookup prior report: %w", err)
	}

	items := make([]*ReportItem, 0, len(ordered))
	for _, productID := range ordered {
		var opening types.Quantity
		if priorClosings != nil {
			opening = priorClosings[productID] // zero for products new this period
		} else {
			opening, err = s.stock.TotalQuantity(ctx, report.FacilityID, productID)
			if err != nil {
				return nil, fmt.Errorf("lot total for %s: %w", productID, err)
			}
		}

		received, issued, err := s.ledger.PeriodTotals(ctx, report.FacilityID, productID, report.Period)
		if err != nil {
			return nil, fmt.Errorf("period totals for %s: %w", productID, err)
		}

		items = append(items, NewReportItem(report.ID, productID, opening, received, issued))
	}
	return items, nil
}

// ItemEdit carries the manually editable fields of a report row. Nil fields
// are left unchanged.
type ItemEdit struct {
	PositiveAdjustments *types.Quantity
	NegativeAdjustments *types.Quantity
	StockoutDays        *int
}

// UpdateItem applies a manual edit and re-derives the closing balance.
// Rows of approved reports are locked.
func (s *Service) UpdateItem(ctx context.Context, itemID id.ID, edit ItemEdit) (*ReportItem, error) {
	var updated *ReportItem
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItem(ctx, itemID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("report item", itemID.String())
			}
			return fmt.Errorf("get report item: %w", err)
		}

		report, err := s.repo.GetReport(ctx, item.ReportID)
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
		if report.IsApproved() {
			return apperror.NewPeriodClosed(report.Period.String()).
				WithDetail("report_id", report.ID.String())
		}

		before := *item

		if edit.PositiveAdjustments != nil {
			if edit.PositiveAdjustments.IsNegative() {
				return apperror.NewValidation("positive adjustments cannot be negative").
					WithDetail("field", "positiveAdjustments")
			}
			item.PositiveAdjustments = *edit.PositiveAdjustments
		}
		if edit.NegativeAdjustments != nil {
			if edit.NegativeAdjustments.IsNegative() {
				return apperror.NewValidation("negative adjustments cannot be negative").
					WithDetail("field", "negativeAdjustments")
			}
			item.NegativeAdjustments = *edit.NegativeAdjustments
		}
		if edit.StockoutDays != nil {
			if *edit.StockoutDays < 0 || *edit.StockoutDays > 31 {
				return apperror.NewValidation("stockout days must be between 0 and 31").
					WithDetail("field", "stockoutDays")
			}
			item.StockoutDays = *edit.StockoutDays
		}
		item.RecomputeClosing()

		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("update report item: %w", err)
		}

		if s.auditor != nil {
			if err := s.auditor.RecordChange(ctx, "report_item", item.ID, before, *item); err != nil {
				// Audit failures are logged, not fatal to the edit.
				logger.Warn(ctx, "audit record failed", "item_id", item.ID.String(), "error", err)
			}
		}

		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetReport retrieves a report with its items.
func (s *Service) GetReport(ctx context.Context, reportID id.ID) (*MonthlyReport, error) {
	r, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("report", reportID.String())
		}
		return nil, err
	}
	return r, nil
}

// GetForPeriod retrieves the report for (facility, period).
func (s *Service) GetForPeriod(ctx context.Context, facilityID id.ID, p period.Period) (*MonthlyReport, error) {
	r, err := s.repo.GetReportForPeriod(ctx, facilityID, p)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("report", fmt.Sprintf("%s/%s", facilityID, p))
		}
		return nil, err
	}
	return r, nil
}

// ListReports retrieves report headers for a facility.
func (s *Service) ListReports(ctx context.Context, facilityID id.ID, filter domain.ListFilter) (domain.ListResult[*MonthlyReport], error) {
	return s.repo.ListReports(ctx, facilityID, filter)
}

// Submit moves a draft report to submitted.
func (s *Service) Submit(ctx context.Context, reportID id.ID) (*MonthlyReport, error) {
	return s.transition(ctx, reportID, StatusDraft, StatusSubmitted)
}

// Approve moves a submitted report to approved, locking it.
func (s *Service) Approve(ctx context.Context, reportID id.ID) (*MonthlyReport, error) {
	return s.transition(ctx, reportID, StatusSubmitted, StatusApproved)
}

func (s *Service) transition(ctx context.Context, reportID id.ID, from, to Status) (*MonthlyReport, error) {
	var result *MonthlyReport
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetReport(ctx, reportID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("report", reportID.String())
			}
			return err
		}
		if r.Status != from {
			return apperror.NewConflict(fmt.Sprintf("report is %s, expected %s", r.Status, from)).
				WithDetail("report_id", reportID.String())
		}

		now := s.now().UTC()
		r.Status = to
		switch to {
		case StatusSubmitted:
			r.SubmittedAt = &now
		case StatusApproved:
			r.ApprovedAt = &now
		}
		r.Touch()

		if err := s.repo.UpdateReport(ctx, r); err != nil {
			return fmt.Errorf("update report status: %w", err)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EnqueueGeneration queues a generation job for the worker.
func (s *Service) EnqueueGeneration(ctx context.Context, facilityID id.ID, p period.Period, force bool, requestedBy string) (*Job, error) {
	if !p.IsComplete(s.now()) {
		return nil, apperror.NewBusinessRule(apperror.CodeInvalidPeriod,
			fmt.Sprintf("period %s has not ended yet", p)).
			WithDetail("period", p.String())
	}

	job := &Job{
		ID:          id.New(),
		FacilityID:  facilityID,
		Period:      p,
		Force:       force,
		Status:      JobPending,
		RequestedBy: requestedBy,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue report job: %w", err)
	}
	return job, nil
}

// ProcessPending claims and runs queued generation jobs. Returns the number
// of jobs processed. Called by the worker loop.
func (s *Service) ProcessPending(ctx context.Context, limit int) (int, error) {
	jobs, err := s.jobs.DequeuePending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("dequeue report jobs: %w", err)
	}

	for _, job := range jobs {
		_, genErr := s.Generate(ctx, job.FacilityID, job.Period, job.Force)
		if genErr != nil {
			logger.Error(ctx, "report job failed",
				"job_id", job.ID.String(),
				"facility_id", job.FacilityID.String(),
				"period", job.Period.String(),
				"error", genErr)
			if err := s.jobs.MarkFailed(ctx, job.ID, genErr.Error()); err != nil {
				return 0, fmt.Errorf("mark job failed: %w", err)
			}
			continue
		}
		if err := s.jobs.MarkDone(ctx, job.ID); err != nil {
			return 0, fmt.Errorf("mark job done: %w", err)
		}
	}
	return len(jobs), nil
}
