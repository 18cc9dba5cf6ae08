package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/id"
	"medstock/internal/core/period"
	"medstock/internal/core/types"
	"medstock/internal/domain/consumption"
	"medstock/internal/infrastructure/storage/postgres"
)

// ConsumptionRepo implements consumption.Repository on top of the monthly
// report rows: a month's consumption is its stock_issued total. Months
// without a report are simply absent from the series.
type ConsumptionRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewConsumptionRepo creates a new consumption history repository.
func NewConsumptionRepo(txManager *postgres.TxManager) *ConsumptionRepo {
	return &ConsumptionRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type consumptionRow struct {
	FacilityID id.ID          `db:"facility_id"`
	ProductID  id.ID          `db:"product_id"`
	Period     period.Period  `db:"period"`
	Issued     types.Quantity `db:"stock_issued"`
}

// MonthlySeries returns up to months consumption rows for the product at
// the facility, for periods strictly before `before`, oldest first.
func (r *ConsumptionRepo) MonthlySeries(ctx context.Context, facilityID, productID id.ID, before period.Period, months int) ([]consumption.Month, error) {
	q := r.builder.
		Select("rep.facility_id", "item.product_id", "rep.period", "item.stock_issued").
		From(reportItemsTable + " item").
		Join(reportsTable + " rep ON rep.id = item.report_id").
		Where(squirrel.Eq{
			"rep.facility_id": facilityID,
			"item.product_id": productID,
		}).
		Where(squirrel.Lt{"rep.period": before.Start()}).
		OrderBy("rep.period DESC").
		Limit(uint64(months))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []consumptionRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("monthly series: %w", err)
	}

	// Fetched newest-first for the LIMIT; the screener wants oldest-first.
	series := make([]consumption.Month, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		series = append(series, consumption.Month{
			FacilityID: row.FacilityID,
			ProductID:  row.ProductID,
			Period:     row.Period,
			Quantity:   row.Issued.Decimal(),
		})
	}

	return series, nil
}
