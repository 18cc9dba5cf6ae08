package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/id"
	"medstock/internal/domain"
	"medstock/internal/domain/orders"
	"medstock/internal/infrastructure/storage/postgres"
)

const (
	orderTable      = "doc_orders"
	orderLinesTable = "doc_order_lines"
)

// OrderRepo implements orders.Repository.
type OrderRepo struct {
	*BaseDocumentRepo[*orders.Order]
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			orderTable,
			postgres.ExtractDBColumns[orders.Order](),
			func() *orders.Order { return &orders.Order{} },
		),
	}
}

// SaveLines replaces the document's lines.
func (r *OrderRepo) SaveLines(ctx context.Context, docID id.ID, lines []orders.OrderLine) error {
	builder := r.Builder()

	if err := deleteByDocument(ctx, r.txManager, builder, orderLinesTable, docID); err != nil {
		return err
	}

	if len(lines) == 0 {
		return nil
	}

	q := builder.Insert(orderLinesTable).
		Columns("line_id", "document_id", "line_no", "product_id", "quantity", "unit", "received_quantity")
	for _, line := range lines {
		q = q.Values(line.LineID, docID, line.LineNo, line.ProductID, line.Quantity, line.Unit, line.ReceivedQuantity)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}

	return nil
}

// GetLines retrieves lines.
func (r *OrderRepo) GetLines(ctx context.Context, docID id.ID) ([]orders.OrderLine, error) {
	q := r.Builder().
		Select("line_id", "line_no", "product_id", "quantity", "unit", "received_quantity").
		From(orderLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []orders.OrderLine
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}

	return lines, nil
}

// List retrieves order headers.
func (r *OrderRepo) List(ctx context.Context, filter orders.ListFilter) (domain.ListResult[*orders.Order], error) {
	result := domain.ListResult[*orders.Order]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.Builder().
		Select(postgres.ExtractDBColumns[orders.Order]()...).
		From(orderTable).
		Where(squirrel.Eq{"facility_id": filter.FacilityID})

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}

	err := r.CountAndSelect(ctx, q, []string{"order_date DESC", "id DESC"},
		filter.Limit, filter.Offset, &result.Items, &result.TotalCount)
	if err != nil {
		return result, err
	}

	return result, nil
}
