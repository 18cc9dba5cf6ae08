// Package register_repo provides PostgreSQL implementations for the stock
// registers: per-batch lots and the append-only movement ledger.
package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/infrastructure/storage/postgres"
)

const lotsTable = "reg_lots"

var lotColumns = []string{
	"id", "facility_id", "product_id",
	"batch_number", "expiry_date",
	"quantity", "unit", "barcode",
	"created_at", "updated_at",
}

// LotRepo implements lot.Repository.
type LotRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewLotRepo creates a new lot repository.
func NewLotRepo(txManager *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new lot.
func (r *LotRepo) Create(ctx context.Context, l *entity.Lot) error {
	q := r.builder.Insert(lotsTable).
		Columns(lotColumns...).
		Values(
			l.ID, l.FacilityID, l.ProductID,
			l.BatchNumber, l.ExpiryDate,
			l.Quantity, l.Unit, l.Barcode,
			l.CreatedAt, l.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}

	return nil
}

func (r *LotRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(lotColumns...).From(lotsTable)
}

// GetByID retrieves a lot.
func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*entity.Lot, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": lotID}), lotID.String())
}

// GetForUpdate retrieves a lot with a row lock.
func (r *LotRepo) GetForUpdate(ctx context.Context, lotID id.ID) (*entity.Lot, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": lotID}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, lotID.String())
}

// GetByBatchForUpdate locks and returns the lot matching
// (facility, product, batch).
func (r *LotRepo) GetByBatchForUpdate(ctx context.Context, facilityID, productID id.ID, batchNumber string) (*entity.Lot, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{
			"facility_id":  facilityID,
			"product_id":   productID,
			"batch_number": batchNumber,
		}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, batchNumber)
}

func (r *LotRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*entity.Lot, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l entity.Lot
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(lotsTable, key)
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}

	return &l, nil
}

// FindIssuable returns lots with stock for the product at the facility in
// issue order: earliest expiry first, lots without expiry last, ties broken
// by id (UUIDv7 = insertion order). Rows are locked so concurrent
// allocations for the same product serialize.
func (r *LotRepo) FindIssuable(ctx context.Context, facilityID, productID id.ID) ([]*entity.Lot, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{
			"facility_id": facilityID,
			"product_id":  productID,
		}).
		Where(squirrel.Gt{"quantity": 0}).
		OrderBy("expiry_date ASC NULLS LAST", "id ASC").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []*entity.Lot
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("find issuable: %w", err)
	}

	return lots, nil
}

// UpdateQuantity persists a new quantity for the lot.
func (r *LotRepo) UpdateQuantity(ctx context.Context, lotID id.ID, qty types.Quantity) error {
	q := r.builder.Update(lotsTable).
		Set("quantity", qty).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": lotID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(lotsTable, lotID.String())
	}

	return nil
}

// TotalQuantity sums on-hand stock for the product at the facility.
func (r *LotRepo) TotalQuantity(ctx context.Context, facilityID, productID id.ID) (types.Quantity, error) {
	q := r.builder.
		Select("COALESCE(SUM(quantity), 0)").
		From(lotsTable).
		Where(squirrel.Eq{
			"facility_id": facilityID,
			"product_id":  productID,
		})

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
		return 0, fmt.Errorf("total quantity: %w", err)
	}

	return total, nil
}

// List retrieves lots for stock-on-hand views.
func (r *LotRepo) List(ctx context.Context, filter lot.ListFilter) (domain.ListResult[*entity.Lot], error) {
	result := domain.ListResult[*entity.Lot]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"facility_id": filter.FacilityID})

	if !id.IsNil(filter.ProductID) {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductID})
	}

	if filter.ExpiresBefore != nil {
		q = q.Where(squirrel.Lt{"expiry_date": *filter.ExpiresBefore})
	}

	if !filter.IncludeEmpty {
		q = q.Where(squirrel.Gt{"quantity": 0})
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

	q = q.OrderBy("expiry_date ASC NULLS LAST", "id ASC")

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
		return result, fmt.Errorf("list lots: %w", err)
	}

	return result, nil
}
