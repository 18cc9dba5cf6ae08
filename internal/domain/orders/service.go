package orders

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
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/ledger"
	"medstock/pkg/logger"
	"medstock/pkg/numerator"
)

// Service provides business operations for order documents.
type Service struct {
	repo      Repository
	lots      *lot.Service
	ledger    *ledger.Service
	numerator *numerator.Service
	txManager tx.Manager
}

// NewService creates a new orders service.
func NewService(repo Repository, lots *lot.Service, ledgerSvc *ledger.Service, num *numerator.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		lots:      lots,
		ledger:    ledgerSvc,
		numerator: num,
		txManager: txManager,
	}
}

// Create saves a new order in the "new" state.
func (s *Service) Create(ctx context.Context, doc *Order) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("ORD"), nil, time.Now())
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
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save order lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order created", "id", doc.ID.String(), "number", doc.Number)
	return nil
}

// ReceiveDelivery books delivered batches into stock: one lot per delivery
// line, each with a received ledger entry, all in one transaction.
// Partial deliveries are allowed; the order closes once every line is
// received in full.
func (s *Service) ReceiveDelivery(ctx context.Context, docID id.ID, delivery []DeliveryLine) (*Order, error) {
	if len(delivery) == 0 {
		return nil, apperror.NewValidation("delivery has no lines").
			WithDetail("field", "delivery")
	}

	var doc *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("order", docID.String())
			}
			return fmt.Errorf("lock order: %w", err)
		}
		if doc.Status == StatusReceived {
			return apperror.NewConflict("order is already fully received").
				WithDetail("order_id", docID.String())
		}

		lines, err := s.repo.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get order lines: %w", err)
		}
		doc.Lines = lines

		userID := appctx.GetUserID(ctx)
		now := time.Now().UTC()

		var movements []*entity.Movement
		for _, dl := range delivery {
			line := doc.LineByID(dl.LineID)
			if line == nil {
				return apperror.NewValidation("delivery references unknown order line").
					WithDetail("line_id", dl.LineID.String())
			}
			if !dl.Quantity.IsPositive() {
				return apperror.NewValidation("delivered quantity must be positive").
					WithDetail("line_id", dl.LineID.String())
			}
			if dl.BatchNumber == "" {
				return apperror.NewValidation("batch number is required").
					WithDetail("line_id", dl.LineID.String())
			}

			if _, err := s.lots.Receive(ctx, lot.ReceiveInput{
				FacilityID:  doc.FacilityID,
				ProductID:   line.ProductID,
				BatchNumber: dl.BatchNumber,
				ExpiryDate:  dl.ExpiryDate,
				Quantity:    dl.Quantity,
				Unit:        line.Unit,
				Barcode:     dl.Barcode,
			}); err != nil {
				return fmt.Errorf("receive batch %s: %w", dl.BatchNumber, err)
			}

			m := entity.NewReceivedMovement(entity.MovementAttrs{
				FacilityID:      doc.FacilityID,
				ProductID:       line.ProductID,
				SourceType:      entity.SourceOrder,
				SourceID:        doc.ID,
				SourceItemID:    line.LineID,
				BatchNumber:     dl.BatchNumber,
				ExpiryDate:      dl.ExpiryDate,
				MovementDate:    now,
				ReferenceNumber: doc.Number,
				CreatedBy:       userID,
			}, dl.Quantity)
			movements = append(movements, &m)

			line.ReceivedQuantity += dl.Quantity
		}

		if err := s.ledger.RecordBatch(ctx, movements); err != nil {
			return err
		}

		if doc.fullyReceived() {
			doc.Status = StatusReceived
			doc.ReceivedAt = &now
		}
		doc.UpdatedBy = userID
		doc.Touch()

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save order lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order delivery received",
		"id", doc.ID.String(),
		"number", doc.Number,
		"delivery_lines", len(delivery))
	return doc, nil
}

func (o *Order) fullyReceived() bool {
	for _, line := range o.Lines {
		if line.ReceivedQuantity < line.Quantity {
			return false
		}
	}
	return true
}

// GetByID retrieves an order with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Order, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("order", docID.String())
		}
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List retrieves order headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}
