package transfers

import (
	"context"
	"fmt"
	"time"

	"medstock/internal/core/apperror"
	appctx "medstock/internal/core/context"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/tx"
	"medstock/internal/domain"
	"medstock/internal/domain/inventory/allocation"
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/ledger"
	"medstock/pkg/logger"
	"medstock/pkg/numerator"
)

// Service provides business operations for transfer documents.
type Service struct {
	repo      Repository
	engine    *allocation.Engine
	lots      *lot.Service
	ledger    *ledger.Service
	numerator *numerator.Service
	txManager tx.Manager
}

// NewService creates a new transfers service.
func NewService(repo Repository, engine *allocation.Engine, lots *lot.Service, ledgerSvc *ledger.Service, num *numerator.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		lots:      lots,
		ledger:    ledgerSvc,
		numerator: num,
		txManager: txManager,
	}
}

// Create saves a new transfer in the "new" state. No stock moves yet.
func (s *Service) Create(ctx context.Context, doc *Transfer) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("TRF"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	createdBy := appctx.GetUserID(ctx)
	doc.CreatedBy = createdBy
	doc.UpdatedBy = createdBy

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save transfer lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "transfer created", "id", doc.ID.String(), "number", doc.Number)
	return nil
}

// Dispatch issues the stock at the source facility: every line is allocated
// earliest-expiry-first, deducted, and posted to the ledger as issued. The
// chosen allocations are saved on the lines so the receipt mirrors them.
func (s *Service) Dispatch(ctx context.Context, docID id.ID) (*Transfer, error) {
	var doc *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.lockedTransfer(ctx, docID, StatusNew)
		if err != nil {
			return err
		}

		userID := appctx.GetUserID(ctx)
		now := time.Now().UTC()

		var movements []*entity.Movement
		for i := range doc.Lines {
			line := &doc.Lines[i]

			allocs, err := s.engine.Allocate(ctx, doc.FromFacilityID, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			line.Allocations = allocs

			for _, a := range allocs {
				m := entity.NewIssuedMovement(entity.MovementAttrs{
					FacilityID:      doc.FromFacilityID,
					ProductID:       line.ProductID,
					SourceType:      entity.SourceTransfer,
					SourceID:        doc.ID,
					SourceItemID:    line.LineID,
					BatchNumber:     a.BatchNumber,
					ExpiryDate:      a.ExpiryDate,
					MovementDate:    now,
					ReferenceNumber: doc.Number,
					CreatedBy:       userID,
				}, a.Quantity)
				movements = append(movements, &m)
			}
		}

		if err := s.ledger.RecordBatch(ctx, movements); err != nil {
			return err
		}

		doc.Status = StatusDispatched
		doc.DispatchedAt = &now
		doc.UpdatedBy = userID
		doc.Touch()

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update transfer: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save transfer lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer dispatched", "id", doc.ID.String(), "number", doc.Number)
	return doc, nil
}

// Receive books the dispatched stock into the destination facility: one lot
// per dispatched batch, with received ledger entries.
func (s *Service) Receive(ctx context.Context, docID id.ID) (*Transfer, error) {
	var doc *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.lockedTransfer(ctx, docID, StatusDispatched)
		if err != nil {
			return err
		}

		userID := appctx.GetUserID(ctx)
		now := time.Now().UTC()

		var movements []*entity.Movement
		for _, line := range doc.Lines {
			for _, a := range line.Allocations {
				if _, err := s.lots.Receive(ctx, lot.ReceiveInput{
					FacilityID:  doc.ToFacilityID,
					ProductID:   line.ProductID,
					BatchNumber: a.BatchNumber,
					ExpiryDate:  a.ExpiryDate,
					Quantity:    a.Quantity,
					Unit:        line.Unit,
				}); err != nil {
					return fmt.Errorf("receive batch %s: %w", a.BatchNumber, err)
				}

				m := entity.NewReceivedMovement(entity.MovementAttrs{
					FacilityID:      doc.ToFacilityID,
					ProductID:       line.ProductID,
					SourceType:      entity.SourceTransfer,
					SourceID:        doc.ID,
					SourceItemID:    line.LineID,
					BatchNumber:     a.BatchNumber,
					ExpiryDate:      a.ExpiryDate,
					MovementDate:    now,
					ReferenceNumber: doc.Number,
					CreatedBy:       userID,
				}, a.Quantity)
				movements = append(movements, &m)
			}
		}

		if err := s.ledger.RecordBatch(ctx, movements); err != nil {
			return err
		}

		doc.Status = StatusReceived
		doc.ReceivedAt = &now
		doc.UpdatedBy = userID
		doc.Touch()

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer received", "id", doc.ID.String(), "number", doc.Number)
	return doc, nil
}

// lockedTransfer loads the document with a row lock and checks its state.
func (s *Service) lockedTransfer(ctx context.Context, docID id.ID, expect Status) (*Transfer, error) {
	doc, err := s.repo.GetForUpdate(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("transfer", docID.String())
		}
		return nil, fmt.Errorf("lock transfer: %w", err)
	}
	if doc.Status != expect {
		return nil, apperror.NewConflict(fmt.Sprintf("transfer is %s, expected %s", doc.Status, expect)).
			WithDetail("transfer_id", docID.String())
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get transfer lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// GetByID retrieves a transfer with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Transfer, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("transfer", docID.String())
		}
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get transfer lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List retrieves transfer headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transfer], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}
