package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/internal/domain/dispensing"
	"medstock/internal/infrastructure/storage/postgres"
)

const (
	dispenseTable            = "doc_dispenses"
	dispenseLinesTable       = "doc_dispense_lines"
	dispenseAllocationsTable = "doc_dispense_allocations"
)

// DispenseRepo implements dispensing.Repository.
type DispenseRepo struct {
	*BaseDocumentRepo[*dispensing.Dispense]
}

// NewDispenseRepo creates a new dispense repository.
func NewDispenseRepo(txManager *postgres.TxManager) *DispenseRepo {
	return &DispenseRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			dispenseTable,
			postgres.ExtractDBColumns[dispensing.Dispense](),
			func() *dispensing.Dispense { return &dispensing.Dispense{} },
		),
	}
}

type dispenseLineRow struct {
	LineID    id.ID          `db:"line_id"`
	LineNo    int            `db:"line_no"`
	ProductID id.ID          `db:"product_id"`
	Quantity  types.Quantity `db:"quantity"`
}

// SaveLines replaces the document's lines and their lot allocations.
func (r *DispenseRepo) SaveLines(ctx context.Context, docID id.ID, lines []dispensing.DispenseLine) error {
	builder := r.Builder()

	// Allocation rows cascade on line delete
	if err := deleteByDocument(ctx, r.txManager, builder, dispenseLinesTable, docID); err != nil {
		return err
	}

	if len(lines) == 0 {
		return nil
	}

	q := builder.Insert(dispenseLinesTable).
		Columns("line_id", "document_id", "line_no", "product_id", "quantity")
	for _, line := range lines {
		q = q.Values(line.LineID, docID, line.LineNo, line.ProductID, line.Quantity)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert dispense lines: %w", err)
	}

	for _, line := range lines {
		if err := insertAllocations(ctx, r.txManager, builder, dispenseAllocationsTable, line.LineID, line.Allocations); err != nil {
			return err
		}
	}

	return nil
}

// GetLines retrieves lines with allocations.
func (r *DispenseRepo) GetLines(ctx context.Context, docID id.ID) ([]dispensing.DispenseLine, error) {
	builder := r.Builder()

	q := builder.
		Select("line_id", "line_no", "product_id", "quantity").
		From(dispenseLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []dispenseLineRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get dispense lines: %w", err)
	}

	lineIDs := make([]id.ID, 0, len(rows))
	for _, row := range rows {
		lineIDs = append(lineIDs, row.LineID)
	}

	allocs, err := loadAllocations(ctx, r.txManager, builder, dispenseAllocationsTable, lineIDs)
	if err != nil {
		return nil, err
	}

	lines := make([]dispensing.DispenseLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, dispensing.DispenseLine{
			LineID:      row.LineID,
			LineNo:      row.LineNo,
			ProductID:   row.ProductID,
			Quantity:    row.Quantity,
			Allocations: allocs[row.LineID],
		})
	}

	return lines, nil
}

// List retrieves dispense headers.
func (r *DispenseRepo) List(ctx context.Context, filter dispensing.ListFilter) (domain.ListResult[*dispensing.Dispense], error) {
	result := domain.ListResult[*dispensing.Dispense]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.Builder().
		Select(postgres.ExtractDBColumns[dispensing.Dispense]()...).
		From(dispenseTable).
		Where(squirrel.Eq{"facility_id": filter.FacilityID})

	if filter.Type != "" {
		q = q.Where(squirrel.Eq{"type": filter.Type})
	}
	if !filter.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"dispense_date": filter.From})
	}
	if !filter.To.IsZero() {
		q = q.Where(squirrel.Lt{"dispense_date": filter.To})
	}

	err := r.CountAndSelect(ctx, q, []string{"dispense_date DESC", "id DESC"},
		filter.Limit, filter.Offset, &result.Items, &result.TotalCount)
	if err != nil {
		return result, err
	}

	return result, nil
}
