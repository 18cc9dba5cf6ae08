// Package allocation implements batch selection for stock issue: walk the
// issuable lots earliest-expiry-first and split the requested quantity across
// as many lots as needed, all-or-nothing.
package allocation

import (
	"context"
	"fmt"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/tx"
	"medstock/internal/core/types"
	"medstock/internal/domain/inventory/lot"
)

// LotAllocation is one slice of an allocation: how much to take from one lot.
type LotAllocation struct {
	LotID       id.ID          `json:"lotId"`
	BatchNumber string         `json:"batchNumber"`
	ExpiryDate  *time.Time     `json:"expiryDate,omitempty"`
	Quantity    types.Quantity `json:"quantity"`
}

// SelectLots computes the allocation plan over already-ordered lots without
// touching storage. Returns the plan and the unmet remainder (zero when the
// request is fully covered). Pure, so the splitting logic tests without a
// database.
func SelectLots(lots []*entity.Lot, requested types.Quantity) ([]LotAllocation, types.Quantity) {
	remaining := requested
	var plan []LotAllocation

	for _, l := range lots {
		if !remaining.IsPositive() {
			break
		}
		if !l.Quantity.IsPositive() {
			continue
		}

		take := remaining.Min(l.Quantity)
		plan = append(plan, LotAllocation{
			LotID:       l.ID,
			BatchNumber: l.BatchNumber,
			ExpiryDate:  l.ExpiryDate,
			Quantity:    take,
		})
		remaining -= take
	}

	return plan, remaining
}

// Engine allocates stock against the Lot Store.
type Engine struct {
	lots      *lot.Service
	txManager tx.Manager
}

// NewEngine creates a new allocation engine.
func NewEngine(lots *lot.Service, txManager tx.Manager) *Engine {
	return &Engine{
		lots:      lots,
		txManager: txManager,
	}
}

// Allocate selects lots for the requested quantity and decrements them, all
// inside one transaction. Lots are consumed earliest expiry first, no-expiry
// lots last, insertion order on equal expiries, so repeated runs over the
// same stock produce the same split.
//
// If available stock cannot cover the request the whole operation fails with
// an insufficient-stock error and no lot is changed. A zero request returns
// an empty plan and no error.
func (e *Engine) Allocate(ctx context.Context, facilityID, productID id.ID, requested types.Quantity) ([]LotAllocation, error) {
	if requested.IsZero() {
		return []LotAllocation{}, nil
	}
	if requested.IsNegative() {
		return nil, apperror.NewValidation("requested quantity cannot be negative").
			WithDetail("quantity", requested.String())
	}

	var plan []LotAllocation
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lots, err := e.lots.FindIssuable(ctx, facilityID, productID)
		if err != nil {
			return err
		}

		var remaining types.Quantity
		plan, remaining = SelectLots(lots, requested)
		if remaining.IsPositive() {
			available := requested - remaining
			return apperror.NewInsufficientStock(productID.String(),
				requested.String(), available.String()).
				WithDetail("remaining", remaining.String())
		}

		// The plan is complete; only now touch the lots.
		for _, a := range plan {
			if _, err := e.lots.Adjust(ctx, a.LotID, a.Quantity.Neg()); err != nil {
				return fmt.Errorf("deduct lot %s: %w", a.LotID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// Available returns total issuable stock for the product at the facility.
// Used by bulk dispensing to report every short line before aborting.
func (e *Engine) Available(ctx context.Context, facilityID, productID id.ID) (types.Quantity, error) {
	return e.lots.TotalQuantity(ctx, facilityID, productID)
}
