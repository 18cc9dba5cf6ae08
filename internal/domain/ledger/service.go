// Package ledger provides the append-only movement ledger. Every lot
// mutation writes exactly one entry here, in the same transaction, with the
// source document attributed. Entries are immutable once written.
package ledger

import (
	"context"
	"fmt"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/period"
	"medstock/internal/core/types"
	"medstock/internal/domain"
)

// Service provides ledger write and aggregation operations.
type Service struct {
	repo Repository
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordReceived appends a "received" entry. Must run in the same
// transaction as the lot increment it documents.
func (s *Service) RecordReceived(ctx context.Context, attrs entity.MovementAttrs, qty types.Quantity) (*entity.Movement, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("received quantity must be positive").
			WithDetail("quantity", qty.String())
	}
	m := entity.NewReceivedMovement(attrs, qty)
	if err := s.repo.Insert(ctx, &m); err != nil {
		return nil, fmt.Errorf("record received movement: %w", err)
	}
	return &m, nil
}

// RecordIssued appends an "issued" entry. Must run in the same transaction
// as the lot decrement it documents.
func (s *Service) RecordIssued(ctx context.Context, attrs entity.MovementAttrs, qty types.Quantity) (*entity.Movement, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("issued quantity must be positive").
			WithDetail("quantity", qty.String())
	}
	m := entity.NewIssuedMovement(attrs, qty)
	if err := s.repo.Insert(ctx, &m); err != nil {
		return nil, fmt.Errorf("record issued movement: %w", err)
	}
	return &m, nil
}

// RecordBatch appends pre-built entries in one round trip. Used by documents
// that post many lines (bulk dispense, transfer receipt).
func (s *Service) RecordBatch(ctx context.Context, movements []*entity.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	for _, m := range movements {
		if !m.Quantity().IsPositive() {
			return apperror.NewValidation("movement quantity must be positive").
				WithDetail("movement_id", m.ID.String())
		}
	}
	if err := s.repo.InsertBatch(ctx, movements); err != nil {
		return fmt.Errorf("record movement batch: %w", err)
	}
	return nil
}

// SumForPeriod sums movements of one type over [from, to).
func (s *Service) SumForPeriod(ctx context.Context, facilityID, productID id.ID, mType entity.MovementType, from, to time.Time) (types.Quantity, error) {
	return s.repo.SumByTypeAndPeriod(ctx, facilityID, productID, mType, from, to)
}

// PeriodTotals returns received and issued sums for one reporting period.
func (s *Service) PeriodTotals(ctx context.Context, facilityID, productID id.ID, p period.Period) (received, issued types.Quantity, err error) {
	received, err = s.repo.SumByTypeAndPeriod(ctx, facilityID, productID, entity.MovementReceived, p.Start(), p.End())
	if err != nil {
		return 0, 0, fmt.Errorf("sum received: %w", err)
	}
	issued, err = s.repo.SumByTypeAndPeriod(ctx, facilityID, productID, entity.MovementIssued, p.Start(), p.End())
	if err != nil {
		return 0, 0, fmt.Errorf("sum issued: %w", err)
	}
	return received, issued, nil
}

// ProductIDsWithMovements returns distinct products that moved at the
// facility during the period.
func (s *Service) ProductIDsWithMovements(ctx context.Context, facilityID id.ID, p period.Period) ([]id.ID, error) {
	return s.repo.ProductIDsWithMovements(ctx, facilityID, p.Start(), p.End())
}

// History retrieves movement entries for audit browsing.
func (s *Service) History(ctx context.Context, filter Filter) (domain.ListResult[*entity.Movement], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}
