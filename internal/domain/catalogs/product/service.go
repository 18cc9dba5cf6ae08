package product

import (
	"context"
	"fmt"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/tx"
	"medstock/internal/domain"
	"medstock/pkg/numerator"
)

// Service provides business logic for the Product catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new Product service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  num,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkBarcode)

	return svc
}

// prepareForCreate handles code generation and barcode uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, p *Product) error {
	if p.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PRD"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		p.Code = code
	}
	return s.checkBarcode(ctx, p)
}

func (s *Service) checkBarcode(ctx context.Context, p *Product) error {
	if p.Barcode == nil || *p.Barcode == "" {
		return nil
	}
	existing, err := s.repo.FindByBarcode(ctx, *p.Barcode)
	if err != nil {
		return nil // not found or lookup failure: let the insert constraint decide
	}
	if existing.ID != p.ID {
		return apperror.NewDuplicate("product", "barcode", *p.Barcode)
	}
	return nil
}

// FindByBarcode retrieves a product by barcode.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	p, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, err
	}
	return p, nil
}

// ListReportEligibleIDs returns IDs of products that must appear on monthly
// reports regardless of movement activity.
func (s *Service) ListReportEligibleIDs(ctx context.Context) ([]id.ID, error) {
	return s.repo.ListReportEligibleIDs(ctx)
}
