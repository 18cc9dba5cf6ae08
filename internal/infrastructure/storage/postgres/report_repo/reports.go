// Package report_repo provides PostgreSQL persistence for monthly reports,
// their generation job queue, and the consumption history they feed.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/period"
	"medstock/internal/domain"
	"medstock/internal/domain/reporting"
	"medstock/internal/infrastructure/storage/postgres"
)

const (
	reportsTable     = "doc_reports"
	reportItemsTable = "doc_report_items"
)

var reportItemColumns = []string{
	"id", "report_id", "product_id",
	"opening_balance", "stock_received", "stock_issued",
	"positive_adjustments", "negative_adjustments", "closing_balance",
	"stockout_days",
}

// ReportRepo implements reporting.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	cols      []string
}

// NewReportRepo creates a new monthly report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		cols:      postgres.ExtractDBColumns[reporting.MonthlyReport](),
	}
}

// CreateReport inserts a report header.
func (r *ReportRepo) CreateReport(ctx context.Context, report *reporting.MonthlyReport) error {
	data := postgres.StructToMap(report)

	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.builder.Insert(reportsTable).SetMap(filtered)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	return nil
}

// UpdateReport persists header changes with optimistic locking.
func (r *ReportRepo) UpdateReport(ctx context.Context, report *reporting.MonthlyReport) error {
	data := postgres.StructToMap(report)

	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if col == "id" || col == "version" {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.builder.Update(reportsTable).
		SetMap(filtered).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": report.ID}).
		Where(squirrel.Eq{"version": report.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(reportsTable, report.ID)
	}

	return nil
}

func (r *ReportRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.cols...).From(reportsTable)
}

// GetReport retrieves a header with its items.
func (r *ReportRepo) GetReport(ctx context.Context, reportID id.ID) (*reporting.MonthlyReport, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": reportID})
	return r.getOne(ctx, q, reportID.String())
}

// GetReportForPeriod retrieves the header for (facility, period) with items.
func (r *ReportRepo) GetReportForPeriod(ctx context.Context, facilityID id.ID, p period.Period) (*reporting.MonthlyReport, error) {
	q := r.baseSelect().Where(squirrel.Eq{
		"facility_id": facilityID,
		"period":      p,
	})
	return r.getOne(ctx, q, fmt.Sprintf("%s/%s", facilityID, p))
}

func (r *ReportRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*reporting.MonthlyReport, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var report reporting.MonthlyReport
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &report, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(reportsTable, key)
		}
		return nil, fmt.Errorf("get report: %w", err)
	}

	items, err := r.getItems(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	report.Items = items

	return &report, nil
}

func (r *ReportRepo) getItems(ctx context.Context, reportID id.ID) ([]*reporting.ReportItem, error) {
	q := r.builder.
		Select(reportItemColumns...).
		From(reportItemsTable).
		Where(squirrel.Eq{"report_id": reportID}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*reporting.ReportItem
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get report items: %w", err)
	}

	return items, nil
}

// ListReports retrieves headers for a facility, most recent period first.
// Items are not loaded for listings.
func (r *ReportRepo) ListReports(ctx context.Context, facilityID id.ID, filter domain.ListFilter) (domain.ListResult[*reporting.MonthlyReport], error) {
	result := domain.ListResult[*reporting.MonthlyReport]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect().Where(squirrel.Eq{"facility_id": facilityID})

	countQ := r.builder.
		Select("COUNT(*)").
		FromSelect(q, "sub")

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("period DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list reports: %w", err)
	}

	return result, nil
}

// InsertItems bulk-inserts report rows. Uses COPY when a transaction is
// active; generation always runs in one.
func (r *ReportRepo) InsertItems(ctx context.Context, items []*reporting.ReportItem) error {
	if len(items) == 0 {
		return nil
	}

	itemRow := func(item *reporting.ReportItem) []any {
		return []any{
			item.ID, item.ReportID, item.ProductID,
			item.OpeningBalance, item.StockReceived, item.StockIssued,
			item.PositiveAdjustments, item.NegativeAdjustments, item.ClosingBalance,
			item.StockoutDays,
		}
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(items))
		for _, item := range items {
			rows = append(rows, itemRow(item))
		}
		if _, err := inserter.CopyFromSlice(ctx, reportItemsTable, reportItemColumns, rows); err != nil {
			return fmt.Errorf("copy report items: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(reportItemsTable).Columns(reportItemColumns...)
	for _, item := range items {
		q = q.Values(itemRow(item)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert report items: %w", err)
	}

	return nil
}

// DeleteItems removes all rows of a report (force regeneration).
func (r *ReportRepo) DeleteItems(ctx context.Context, reportID id.ID) error {
	q := r.builder.Delete(reportItemsTable).Where(squirrel.Eq{"report_id": reportID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete report items: %w", err)
	}

	return nil
}

// GetItem retrieves one row.
func (r *ReportRepo) GetItem(ctx context.Context, itemID id.ID) (*reporting.ReportItem, error) {
	q := r.builder.
		Select(reportItemColumns...).
		From(reportItemsTable).
		Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item reporting.ReportItem
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(reportItemsTable, itemID.String())
		}
		return nil, fmt.Errorf("get report item: %w", err)
	}

	return &item, nil
}

// UpdateItem persists a manually edited row.
func (r *ReportRepo) UpdateItem(ctx context.Context, item *reporting.ReportItem) error {
	q := r.builder.Update(reportItemsTable).
		Set("opening_balance", item.OpeningBalance).
		Set("stock_received", item.StockReceived).
		Set("stock_issued", item.StockIssued).
		Set("positive_adjustments", item.PositiveAdjustments).
		Set("negative_adjustments", item.NegativeAdjustments).
		Set("closing_balance", item.ClosingBalance).
		Set("stockout_days", item.StockoutDays).
		Where(squirrel.Eq{"id": item.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update report item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(reportItemsTable, item.ID.String())
	}

	return nil
}
