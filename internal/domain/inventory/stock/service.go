// Package stock composes the lot store and the movement ledger for direct
// stock operations that arrive outside of a wrapping document: supplier-less
// receipts and manual corrections. Every mutation posts its ledger entry in
// the same transaction as the lot change.
package stock

import (
	"context"
	"fmt"

	appctx "medstock/internal/core/context"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/tx"
	"medstock/internal/core/types"
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/ledger"
)

// Service provides direct stock receipt and adjustment.
type Service struct {
	lots      *lot.Service
	ledger    *ledger.Service
	txManager tx.Manager
}

// NewService creates a new stock service.
func NewService(lots *lot.Service, ledgerSvc *ledger.Service, txManager tx.Manager) *Service {
	return &Service{
		lots:      lots,
		ledger:    ledgerSvc,
		txManager: txManager,
	}
}

// Receive registers an incoming batch and documents it as a received
// adjustment entry.
func (s *Service) Receive(ctx context.Context, in lot.ReceiveInput) (*entity.Lot, error) {
	var result *entity.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.lots.Receive(ctx, in)
		if err != nil {
			return err
		}

		attrs := entity.MovementAttrs{
			FacilityID:  in.FacilityID,
			ProductID:   in.ProductID,
			SourceType:  entity.SourceAdjustment,
			SourceID:    l.ID,
			BatchNumber: l.BatchNumber,
			ExpiryDate:  l.ExpiryDate,
			CreatedBy:   appctx.GetUserID(ctx),
		}
		if _, err := s.ledger.RecordReceived(ctx, attrs, in.Quantity); err != nil {
			return fmt.Errorf("record receipt: %w", err)
		}

		result = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Adjust applies a signed manual correction to a lot. Positive deltas post a
// received entry, negative ones an issued entry; reason lands in the ledger
// reference.
func (s *Service) Adjust(ctx context.Context, lotID id.ID, delta types.Quantity, reason string) (*entity.Lot, error) {
	var result *entity.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.lots.Adjust(ctx, lotID, delta)
		if err != nil {
			return err
		}

		if delta.IsZero() {
			result = l
			return nil
		}

		attrs := entity.MovementAttrs{
			FacilityID:      l.FacilityID,
			ProductID:       l.ProductID,
			SourceType:      entity.SourceAdjustment,
			SourceID:        l.ID,
			BatchNumber:     l.BatchNumber,
			ExpiryDate:      l.ExpiryDate,
			ReferenceNumber: reason,
			CreatedBy:       appctx.GetUserID(ctx),
		}
		if delta.IsPositive() {
			_, err = s.ledger.RecordReceived(ctx, attrs, delta)
		} else {
			_, err = s.ledger.RecordIssued(ctx, attrs, delta.Neg())
		}
		if err != nil {
			return fmt.Errorf("record adjustment: %w", err)
		}

		result = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
