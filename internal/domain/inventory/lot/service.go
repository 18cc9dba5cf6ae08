// Package lot provides the Lot Store: per-batch stock records scoped to a
// facility. Receipt increments or creates lots, issue decrements them, and
// quantity never goes below zero. Exhausted lots stay as zeroed rows so the
// batch trail survives the stock.
package lot

import (
	"context"
	"fmt"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/tx"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/pkg/logger"
)

// ReceiveInput describes one batch of incoming stock.
type ReceiveInput struct {
	FacilityID  id.ID
	ProductID   id.ID
	BatchNumber string
	ExpiryDate  *time.Time
	Quantity    types.Quantity
	Unit        string
	Barcode     string
}

// Service provides business logic for the Lot Store.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new Lot Store service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// FindIssuable returns lots available for issue, in allocation order:
// earliest expiry first, lots without expiry last, insertion order on ties.
// Rows come back locked, so this must run inside a transaction.
func (s *Service) FindIssuable(ctx context.Context, facilityID, productID id.ID) ([]*entity.Lot, error) {
	lots, err := s.repo.FindIssuable(ctx, facilityID, productID)
	if err != nil {
		return nil, fmt.Errorf("find issuable lots: %w", err)
	}
	return lots, nil
}

// Receive adds incoming stock: increments the lot matching
// (facility, product, batch) or creates a new one.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*entity.Lot, error) {
	if in.Quantity.IsNegative() {
		return nil, apperror.NewValidation("received quantity cannot be negative").
			WithDetail("quantity", in.Quantity.String())
	}
	if in.BatchNumber == "" {
		return nil, apperror.NewValidation("batch number is required").
			WithDetail("field", "batchNumber")
	}

	var result *entity.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByBatchForUpdate(ctx, in.FacilityID, in.ProductID, in.BatchNumber)
		switch {
		case err == nil:
			newQty := existing.Quantity + in.Quantity
			if err := s.repo.UpdateQuantity(ctx, existing.ID, newQty); err != nil {
				return fmt.Errorf("increment lot %s: %w", existing.ID, err)
			}
			existing.Quantity = newQty
			result = existing
			return nil

		case apperror.IsNotFound(err):
			created := entity.NewLot(in.FacilityID, in.ProductID, in.BatchNumber,
				in.ExpiryDate, in.Quantity, in.Unit, in.Barcode)
			if err := s.repo.Create(ctx, &created); err != nil {
				return fmt.Errorf("create lot: %w", err)
			}
			result = &created
			return nil

		default:
			return fmt.Errorf("lookup lot by batch: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Adjust mutates a lot's quantity by delta (negative = issue). The resulting
// quantity must stay non-negative; a violation means a caller bug, not bad
// user input, so it is logged as an error before being returned.
func (s *Service) Adjust(ctx context.Context, lotID id.ID, delta types.Quantity) (*entity.Lot, error) {
	var result *entity.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.repo.GetForUpdate(ctx, lotID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("lot", lotID.String())
			}
			return fmt.Errorf("lock lot %s: %w", lotID, err)
		}

		newQty := l.Quantity + delta
		if newQty.IsNegative() {
			logger.Error(ctx, "lot adjustment would go negative",
				"lot_id", lotID.String(),
				"current", l.Quantity.String(),
				"delta", delta.String())
			return apperror.NewNegativeQuantity(lotID.String(), l.Quantity.String(), delta.String())
		}

		if err := s.repo.UpdateQuantity(ctx, lotID, newQty); err != nil {
			return fmt.Errorf("update lot %s quantity: %w", lotID, err)
		}
		l.Quantity = newQty
		result = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID retrieves a single lot.
func (s *Service) GetByID(ctx context.Context, lotID id.ID) (*entity.Lot, error) {
	l, err := s.repo.GetByID(ctx, lotID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("lot", lotID.String())
		}
		return nil, err
	}
	return l, nil
}

// TotalQuantity sums on-hand stock for a product at a facility. Used as the
// opening-balance fallback for a facility's very first monthly report.
func (s *Service) TotalQuantity(ctx context.Context, facilityID, productID id.ID) (types.Quantity, error) {
	return s.repo.TotalQuantity(ctx, facilityID, productID)
}

// List retrieves lots for stock-on-hand views.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*entity.Lot], error) {
	return s.repo.List(ctx, filter)
}
