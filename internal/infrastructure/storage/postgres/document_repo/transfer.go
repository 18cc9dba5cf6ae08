package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/internal/domain/transfers"
	"medstock/internal/infrastructure/storage/postgres"
)

const (
	transferTable            = "doc_transfers"
	transferLinesTable       = "doc_transfer_lines"
	transferAllocationsTable = "doc_transfer_allocations"
)

// TransferRepo implements transfers.Repository.
type TransferRepo struct {
	*BaseDocumentRepo[*transfers.Transfer]
}

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			transferTable,
			postgres.ExtractDBColumns[transfers.Transfer](),
			func() *transfers.Transfer { return &transfers.Transfer{} },
		),
	}
}

type transferLineRow struct {
	LineID    id.ID          `db:"line_id"`
	LineNo    int            `db:"line_no"`
	ProductID id.ID          `db:"product_id"`
	Quantity  types.Quantity `db:"quantity"`
	Unit      string         `db:"unit"`
}

// SaveLines replaces the document's lines and their allocations.
// Allocations written at dispatch drive the receipt leg, so they persist
// with the same batch identity the source issued.
func (r *TransferRepo) SaveLines(ctx context.Context, docID id.ID, lines []transfers.TransferLine) error {
	builder := r.Builder()

	if err := deleteByDocument(ctx, r.txManager, builder, transferLinesTable, docID); err != nil {
		return err
	}

	if len(lines) == 0 {
		return nil
	}

	q := builder.Insert(transferLinesTable).
		Columns("line_id", "document_id", "line_no", "product_id", "quantity", "unit")
	for _, line := range lines {
		q = q.Values(line.LineID, docID, line.LineNo, line.ProductID, line.Quantity, line.Unit)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transfer lines: %w", err)
	}

	for _, line := range lines {
		if err := insertAllocations(ctx, r.txManager, builder, transferAllocationsTable, line.LineID, line.Allocations); err != nil {
			return err
		}
	}

	return nil
}

// GetLines retrieves lines with allocations.
func (r *TransferRepo) GetLines(ctx context.Context, docID id.ID) ([]transfers.TransferLine, error) {
	builder := r.Builder()

	q := builder.
		Select("line_id", "line_no", "product_id", "quantity", "unit").
		From(transferLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []transferLineRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get transfer lines: %w", err)
	}

	lineIDs := make([]id.ID, 0, len(rows))
	for _, row := range rows {
		lineIDs = append(lineIDs, row.LineID)
	}

	allocs, err := loadAllocations(ctx, r.txManager, builder, transferAllocationsTable, lineIDs)
	if err != nil {
		return nil, err
	}

	lines := make([]transfers.TransferLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, transfers.TransferLine{
			LineID:      row.LineID,
			LineNo:      row.LineNo,
			ProductID:   row.ProductID,
			Quantity:    row.Quantity,
			Unit:        row.Unit,
			Allocations: allocs[row.LineID],
		})
	}

	return lines, nil
}

// List retrieves transfer headers. FacilityID matches either side.
func (r *TransferRepo) List(ctx context.Context, filter transfers.ListFilter) (domain.ListResult[*transfers.Transfer], error) {
	result := domain.ListResult[*transfers.Transfer]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.Builder().
		Select(postgres.ExtractDBColumns[transfers.Transfer]()...).
		From(transferTable)

	if !id.IsNil(filter.FacilityID) {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_facility_id": filter.FacilityID},
			squirrel.Eq{"to_facility_id": filter.FacilityID},
		})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}

	err := r.CountAndSelect(ctx, q, []string{"created_at DESC", "id DESC"},
		filter.Limit, filter.Offset, &result.Items, &result.TotalCount)
	if err != nil {
		return result, err
	}

	return result, nil
}
