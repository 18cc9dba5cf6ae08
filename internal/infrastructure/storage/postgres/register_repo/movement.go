package register_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/internal/domain/ledger"
	"medstock/internal/infrastructure/storage/postgres"
)

const movementsTable = "reg_movements"

var movementColumns = []string{
	"id", "facility_id", "product_id", "movement_type",
	"source_type", "source_id", "source_item_id",
	"received_quantity", "issued_quantity",
	"batch_number", "expiry_date", "movement_date",
	"reference_number", "created_by", "created_at",
}

// MovementRepo implements ledger.Repository.
// The table is append-only: no update or delete statements exist here.
type MovementRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewMovementRepo creates a new movement ledger repository.
func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func movementRow(m *entity.Movement) []any {
	return []any{
		m.ID, m.FacilityID, m.ProductID, m.MovementType,
		m.SourceType, m.SourceID, m.SourceItemID,
		m.ReceivedQuantity, m.IssuedQuantity,
		m.BatchNumber, m.ExpiryDate, m.MovementDate,
		m.ReferenceNumber, m.CreatedBy, m.CreatedAt,
	}
}

// Insert appends one ledger entry.
func (r *MovementRepo) Insert(ctx context.Context, m *entity.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(movementRow(m)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return nil
}

// InsertBatch appends many entries at once.
func (r *MovementRepo) InsertBatch(ctx context.Context, movements []*entity.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementRow(m))
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback: multi-row insert. Prefer calling InsertBatch within tx.
	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(movementRow(m)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

// SumByTypeAndPeriod sums quantities of the given type for the product at
// the facility over the half-open range [from, to).
func (r *MovementRepo) SumByTypeAndPeriod(ctx context.Context, facilityID, productID id.ID, mType entity.MovementType, from, to time.Time) (types.Quantity, error) {
	col := "received_quantity"
	if mType == entity.MovementIssued {
		col = "issued_quantity"
	}

	q := r.builder.
		Select("COALESCE(SUM("+col+"), 0)").
		From(movementsTable).
		Where(squirrel.Eq{
			"facility_id":   facilityID,
			"product_id":    productID,
			"movement_type": mType,
		}).
		Where(squirrel.GtOrEq{"movement_date": from}).
		Where(squirrel.Lt{"movement_date": to})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var total types.Quantity
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sum movements: %w", err)
	}

	return total, nil
}

// ProductIDsWithMovements returns distinct products with any movement at
// the facility over [from, to).
func (r *MovementRepo) ProductIDsWithMovements(ctx context.Context, facilityID id.ID, from, to time.Time) ([]id.ID, error) {
	q := r.builder.
		Select("DISTINCT product_id").
		From(movementsTable).
		Where(squirrel.Eq{"facility_id": facilityID}).
		Where(squirrel.GtOrEq{"movement_date": from}).
		Where(squirrel.Lt{"movement_date": to}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("products with movements: %w", err)
	}

	return ids, nil
}

// List retrieves movement history for audit browsing, newest first.
func (r *MovementRepo) List(ctx context.Context, filter ledger.Filter) (domain.ListResult[*entity.Movement], error) {
	result := domain.ListResult[*entity.Movement]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.
		Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"facility_id": filter.FacilityID})

	if !id.IsNil(filter.ProductID) {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductID})
	}
	if filter.MovementType != "" {
		q = q.Where(squirrel.Eq{"movement_type": filter.MovementType})
	}
	if filter.SourceType != "" {
		q = q.Where(squirrel.Eq{"source_type": filter.SourceType})
	}
	if !filter.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"movement_date": filter.From})
	}
	if !filter.To.IsZero() {
		q = q.Where(squirrel.Lt{"movement_date": filter.To})
	}

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

	q = q.OrderBy("movement_date DESC", "id DESC")

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
		return result, fmt.Errorf("list movements: %w", err)
	}

	return result, nil
}
