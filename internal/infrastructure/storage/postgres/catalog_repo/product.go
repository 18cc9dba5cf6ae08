package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/id"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/infrastructure/storage/postgres"
)

const productTable = "cat_products"

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			productTable,
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

// FindByBarcode retrieves an active product by barcode.
func (r *ProductRepo) FindByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[product.Product]()...).
		From(productTable).
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"is_active": true}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// ListReportEligibleIDs returns IDs of active products flagged for monthly
// reports.
func (r *ProductRepo) ListReportEligibleIDs(ctx context.Context) ([]id.ID, error) {
	q := r.Builder().
		Select("id").
		From(productTable).
		Where(squirrel.Eq{"report_eligible": true}).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("list report eligible: %w", err)
	}

	return ids, nil
}
