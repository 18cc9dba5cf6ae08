package facility

import (
	"context"
	"fmt"
	"time"

	"medstock/internal/core/tx"
	"medstock/internal/domain"
	"medstock/pkg/numerator"
)

// Service provides business logic for the Facility catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Facility]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new Facility service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Facility]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  num,
		EntityName: "facility",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// prepareForCreate generates a code when none is provided.
func (s *Service) prepareForCreate(ctx context.Context, f *Facility) error {
	if f.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("FAC"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		f.Code = code
	}
	return nil
}
