package dispensing

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
	"medstock/internal/domain/ledger"
	"medstock/pkg/logger"
	"medstock/pkg/numerator"
)

// Service provides business operations for dispense documents.
type Service struct {
	repo      Repository
	engine    *allocation.Engine
	ledger    *ledger.Service
	numerator *numerator.Service
	txManager tx.Manager
}

// NewService creates a new dispensing service.
func NewService(repo Repository, engine *allocation.Engine, ledgerSvc *ledger.Service, num *numerator.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		ledger:    ledgerSvc,
		numerator: num,
		txManager: txManager,
	}
}

// Create validates, allocates and posts the dispense in one transaction:
// every line is deducted from lots earliest-expiry-first and every consumed
// lot gets an issued ledger entry. Nothing is written on failure.
//
// Bulk MOH dispenses check every line against available stock first, so a
// shortage reports all short products at once instead of failing on the
// first one.
func (s *Service) Create(ctx context.Context, doc *Dispense) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("DSP"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	createdBy := appctx.GetUserID(ctx)
	doc.CreatedBy = createdBy
	doc.UpdatedBy = createdBy

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if doc.Type == TypeMOHBulk {
			if err := s.checkBulkAvailability(ctx, doc); err != nil {
				return err
			}
		}

		var movements []*entity.Movement
		for i := range doc.Lines {
			line := &doc.Lines[i]

			allocs, err := s.engine.Allocate(ctx, doc.FacilityID, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			line.Allocations = allocs

			for _, a := range allocs {
				m := entity.NewIssuedMovement(entity.MovementAttrs{
					FacilityID:      doc.FacilityID,
					ProductID:       line.ProductID,
					SourceType:      doc.SourceType(),
					SourceID:        doc.ID,
					SourceItemID:    line.LineID,
					BatchNumber:     a.BatchNumber,
					ExpiryDate:      a.ExpiryDate,
					MovementDate:    doc.DispenseDate,
					ReferenceNumber: doc.Number,
					CreatedBy:       createdBy,
				}, a.Quantity)
				movements = append(movements, &m)
			}
		}

		if err := s.ledger.RecordBatch(ctx, movements); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create dispense: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save dispense lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "dispense posted",
		"id", doc.ID.String(),
		"number", doc.Number,
		"type", string(doc.Type),
		"lines", len(doc.Lines))
	return nil
}

// checkBulkAvailability collects every short line before any stock is
// touched, so the caller learns the full shortage in one response.
func (s *Service) checkBulkAvailability(ctx context.Context, doc *Dispense) error {
	var shortages []map[string]any
	for _, line := range doc.Lines {
		available, err := s.engine.Available(ctx, doc.FacilityID, line.ProductID)
		if err != nil {
			return fmt.Errorf("check availability for %s: %w", line.ProductID, err)
		}
		if line.Quantity > available {
			shortages = append(shortages, map[string]any{
				"product_id": line.ProductID.String(),
				"requested":  line.Quantity.String(),
				"available":  available.String(),
			})
		}
	}
	if len(shortages) > 0 {
		return apperror.NewStockShortage(shortages)
	}
	return nil
}

// GetByID retrieves a dispense with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Dispense, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("dispense", docID.String())
		}
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get dispense lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List retrieves dispense headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Dispense], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}
