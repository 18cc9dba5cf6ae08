package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/inventory/allocation"
	"medstock/internal/infrastructure/storage/postgres"
)

// allocationRow mirrors the per-lot allocation tables attached to dispense
// and transfer lines.
type allocationRow struct {
	LineID      id.ID          `db:"line_id"`
	LotID       id.ID          `db:"lot_id"`
	BatchNumber string         `db:"batch_number"`
	ExpiryDate  *time.Time     `db:"expiry_date"`
	Quantity    types.Quantity `db:"quantity"`
}

var allocationColumns = []string{"line_id", "lot_id", "batch_number", "expiry_date", "quantity"}

func insertAllocations(ctx context.Context, txManager *postgres.TxManager, builder squirrel.StatementBuilderType, table string, lineID id.ID, allocs []allocation.LotAllocation) error {
	if len(allocs) == 0 {
		return nil
	}

	q := builder.Insert(table).Columns(allocationColumns...)
	for _, a := range allocs {
		q = q.Values(lineID, a.LotID, a.BatchNumber, a.ExpiryDate, a.Quantity)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert allocations: %w", err)
	}

	return nil
}

// loadAllocations returns allocations for the given lines grouped by line.
func loadAllocations(ctx context.Context, txManager *postgres.TxManager, builder squirrel.StatementBuilderType, table string, lineIDs []id.ID) (map[id.ID][]allocation.LotAllocation, error) {
	byLine := make(map[id.ID][]allocation.LotAllocation, len(lineIDs))
	if len(lineIDs) == 0 {
		return byLine, nil
	}

	q := builder.
		Select(allocationColumns...).
		From(table).
		Where(squirrel.Eq{"line_id": lineIDs}).
		OrderBy("line_id", "lot_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []allocationRow
	if err := pgxscan.Select(ctx, txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}

	for _, row := range rows {
		byLine[row.LineID] = append(byLine[row.LineID], allocation.LotAllocation{
			LotID:       row.LotID,
			BatchNumber: row.BatchNumber,
			ExpiryDate:  row.ExpiryDate,
			Quantity:    row.Quantity,
		})
	}

	return byLine, nil
}

func deleteByDocument(ctx context.Context, txManager *postgres.TxManager, builder squirrel.StatementBuilderType, table string, docID id.ID) error {
	q := builder.Delete(table).Where(squirrel.Eq{"document_id": docID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}

	return nil
}
