package allocation

import (
	"context"
	"sort"
	"testing"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/internal/domain/inventory/lot"
)

// --- Test doubles ---

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memLotRepo is an in-memory lot.Repository.
type memLotRepo struct {
	lots map[id.ID]*entity.Lot
}

func newMemLotRepo(lots ...*entity.Lot) *memLotRepo {
	r := &memLotRepo{lots: make(map[id.ID]*entity.Lot)}
	for _, l := range lots {
		cp := *l
		r.lots[l.ID] = &cp
	}
	return r
}

func (r *memLotRepo) Create(ctx context.Context, l *entity.Lot) error {
	cp := *l
	r.lots[l.ID] = &cp
	return nil
}

func (r *memLotRepo) GetByID(ctx context.Context, lotID id.ID) (*entity.Lot, error) {
	if l, ok := r.lots[lotID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, apperror.NewNotFound("lot", lotID.String())
}

func (r *memLotRepo) GetForUpdate(ctx context.Context, lotID id.ID) (*entity.Lot, error) {
	return r.GetByID(ctx, lotID)
}

func (r *memLotRepo) GetByBatchForUpdate(ctx context.Context, facilityID, productID id.ID, batchNumber string) (*entity.Lot, error) {
	for _, l := range r.lots {
		if l.FacilityID == facilityID && l.ProductID == productID && l.BatchNumber == batchNumber {
			cp := *l
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("lot", batchNumber)
}

func (r *memLotRepo) FindIssuable(ctx context.Context, facilityID, productID id.ID) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, l := range r.lots {
		if l.FacilityID == facilityID && l.ProductID == productID && l.Quantity.IsPositive() {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresBefore(out[j]) })
	return out, nil
}

func (r *memLotRepo) UpdateQuantity(ctx context.Context, lotID id.ID, qty types.Quantity) error {
	l, ok := r.lots[lotID]
	if !ok {
		return apperror.NewNotFound("lot", lotID.String())
	}
	l.Quantity = qty
	return nil
}

func (r *memLotRepo) TotalQuantity(ctx context.Context, facilityID, productID id.ID) (types.Quantity, error) {
	var total types.Quantity
	for _, l := range r.lots {
		if l.FacilityID == facilityID && l.ProductID == productID {
			total += l.Quantity
		}
	}
	return total, nil
}

func (r *memLotRepo) List(ctx context.Context, filter lot.ListFilter) (domain.ListResult[*entity.Lot], error) {
	return domain.ListResult[*entity.Lot]{}, nil
}

func (r *memLotRepo) quantity(lotID id.ID) types.Quantity {
	return r.lots[lotID].Quantity
}

// --- Fixtures ---

func dateP(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func makeLot(facilityID, productID id.ID, batch string, qty int64, expiry *time.Time) *entity.Lot {
	l := entity.NewLot(facilityID, productID, batch, expiry, types.NewQuantityFromInt(qty), "tablet", "")
	return &l
}

// --- SelectLots (pure planning) ---

func TestSelectLots_SplitsAcrossLots(t *testing.T) {
	facility, prod := id.New(), id.New()
	a := makeLot(facility, prod, "A", 5, dateP(2025, time.January, 1))
	b := makeLot(facility, prod, "B", 10, dateP(2025, time.February, 1))

	plan, remaining := SelectLots([]*entity.Lot{a, b}, types.NewQuantityFromInt(8))

	if !remaining.IsZero() {
		t.Fatalf("expected zero remainder, got %s", remaining)
	}
	if len(plan) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(plan))
	}
	if plan[0].LotID != a.ID || plan[0].Quantity != types.NewQuantityFromInt(5) {
		t.Errorf("first allocation: expected (A, 5), got (%s, %s)", plan[0].BatchNumber, plan[0].Quantity)
	}
	if plan[1].LotID != b.ID || plan[1].Quantity != types.NewQuantityFromInt(3) {
		t.Errorf("second allocation: expected (B, 3), got (%s, %s)", plan[1].BatchNumber, plan[1].Quantity)
	}
}

func TestSelectLots_ReportsUnmetRemainder(t *testing.T) {
	facility, prod := id.New(), id.New()
	a := makeLot(facility, prod, "A", 3, dateP(2025, time.January, 1))
	b := makeLot(facility, prod, "B", 5, nil)

	plan, remaining := SelectLots([]*entity.Lot{a, b}, types.NewQuantityFromInt(10))

	if remaining != types.NewQuantityFromInt(2) {
		t.Errorf("expected remainder 2, got %s", remaining)
	}
	var taken types.Quantity
	for _, p := range plan {
		taken += p.Quantity
	}
	if taken != types.NewQuantityFromInt(8) {
		t.Errorf("expected 8 taken, got %s", taken)
	}
}

func TestSelectLots_ZeroRequest(t *testing.T) {
	facility, prod := id.New(), id.New()
	a := makeLot(facility, prod, "A", 5, nil)

	plan, remaining := SelectLots([]*entity.Lot{a}, 0)

	if len(plan) != 0 {
		t.Errorf("expected empty plan, got %d allocations", len(plan))
	}
	if !remaining.IsZero() {
		t.Errorf("expected zero remainder, got %s", remaining)
	}
}

// --- Engine ---

func newTestEngine(repo *memLotRepo) *Engine {
	store := lot.NewService(repo, noopTxManager{})
	return NewEngine(store, noopTxManager{})
}

func TestAllocate_DeductsInExpiryOrder(t *testing.T) {
	facility, prod := id.New(), id.New()
	a := makeLot(facility, prod, "A", 5, dateP(2025, time.January, 1))
	b := makeLot(facility, prod, "B", 10, dateP(2025, time.February, 1))
	repo := newMemLotRepo(a, b)
	engine := newTestEngine(repo)

	plan, err := engine.Allocate(context.Background(), facility, prod, types.NewQuantityFromInt(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(plan))
	}
	if plan[0].BatchNumber != "A" || plan[1].BatchNumber != "B" {
		t.Errorf("expected batches [A B], got [%s %s]", plan[0].BatchNumber, plan[1].BatchNumber)
	}
	if got := repo.quantity(a.ID); !got.IsZero() {
		t.Errorf("lot A: expected 0 remaining, got %s", got)
	}
	if got := repo.quantity(b.ID); got != types.NewQuantityFromInt(7) {
		t.Errorf("lot B: expected 7 remaining, got %s", got)
	}
}

func TestAllocate_NullExpiryConsumedLast(t *testing.T) {
	facility, prod := id.New(), id.New()
	noExpiry := makeLot(facility, prod, "NOEXP", 10, nil)
	dated := makeLot(facility, prod, "DATED", 4, dateP(2026, time.June, 1))
	repo := newMemLotRepo(noExpiry, dated)
	engine := newTestEngine(repo)

	plan, err := engine.Allocate(context.Background(), facility, prod, types.NewQuantityFromInt(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan[0].BatchNumber != "DATED" {
		t.Errorf("expected dated lot first, got %s", plan[0].BatchNumber)
	}
	if got := repo.quantity(noExpiry.ID); got != types.NewQuantityFromInt(8) {
		t.Errorf("no-expiry lot: expected 8 remaining, got %s", got)
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	facility, prod := id.New(), id.New()
	expiry := dateP(2025, time.March, 1)
	// Same expiry on both lots; UUIDv7 ids break the tie by insertion order.
	first := makeLot(facility, prod, "FIRST", 5, expiry)
	second := makeLot(facility, prod, "SECOND", 5, expiry)

	for run := 0; run < 3; run++ {
		repo := newMemLotRepo(first, second)
		engine := newTestEngine(repo)

		plan, err := engine.Allocate(context.Background(), facility, prod, types.NewQuantityFromInt(7))
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if plan[0].LotID != first.ID || plan[1].LotID != second.ID {
			t.Fatalf("run %d: allocation order changed", run)
		}
		if plan[0].Quantity != types.NewQuantityFromInt(5) || plan[1].Quantity != types.NewQuantityFromInt(2) {
			t.Fatalf("run %d: allocation split changed", run)
		}
	}
}

func TestAllocate_InsufficientLeavesLotsUntouched(t *testing.T) {
	facility, prod := id.New(), id.New()
	a := makeLot(facility, prod, "A", 3, dateP(2025, time.January, 1))
	b := makeLot(facility, prod, "B", 5, dateP(2025, time.February, 1))
	repo := newMemLotRepo(a, b)
	engine := newTestEngine(repo)

	_, err := engine.Allocate(context.Background(), facility, prod, types.NewQuantityFromInt(10))
	if !apperror.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	appErr, _ := apperror.AsAppError(err)
	if appErr.Details["remaining"] != "2.0000" {
		t.Errorf("expected unmet remainder 2.0000, got %v", appErr.Details["remaining"])
	}
	if appErr.Details["available"] != "8.0000" {
		t.Errorf("expected available 8.0000, got %v", appErr.Details["available"])
	}

	if got := repo.quantity(a.ID); got != types.NewQuantityFromInt(3) {
		t.Errorf("lot A changed on failed allocation: %s", got)
	}
	if got := repo.quantity(b.ID); got != types.NewQuantityFromInt(5) {
		t.Errorf("lot B changed on failed allocation: %s", got)
	}
}

func TestAllocate_ZeroRequestIsNoop(t *testing.T) {
	facility, prod := id.New(), id.New()
	a := makeLot(facility, prod, "A", 5, nil)
	repo := newMemLotRepo(a)
	engine := newTestEngine(repo)

	plan, err := engine.Allocate(context.Background(), facility, prod, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 0 {
		t.Errorf("expected empty plan, got %d allocations", len(plan))
	}
	if got := repo.quantity(a.ID); got != types.NewQuantityFromInt(5) {
		t.Errorf("lot changed on zero request: %s", got)
	}
}

func TestAllocate_NegativeRequestRejected(t *testing.T) {
	repo := newMemLotRepo()
	engine := newTestEngine(repo)

	_, err := engine.Allocate(context.Background(), id.New(), id.New(), types.NewQuantityFromInt(-1))
	if err == nil {
		t.Fatal("expected validation error for negative request")
	}
}

// Random receive/allocate sequences must never drive a lot negative.
func TestAllocate_QuantityNeverNegative(t *testing.T) {
	facility, prod := id.New(), id.New()
	repo := newMemLotRepo()
	store := lot.NewService(repo, noopTxManager{})
	engine := NewEngine(store, noopTxManager{})
	ctx := context.Background()

	// Pseudo-random but fixed sequence of receives and issues.
	seq := []int64{7, -3, 4, -9, 2, -15, 11, -6, -100, 5}
	batch := 0
	for _, amount := range seq {
		if amount > 0 {
			batch++
			_, err := store.Receive(ctx, lot.ReceiveInput{
				FacilityID:  facility,
				ProductID:   prod,
				BatchNumber: "B" + string(rune('0'+batch)),
				Quantity:    types.NewQuantityFromInt(amount),
				Unit:        "vial",
			})
			if err != nil {
				t.Fatalf("receive %d failed: %v", amount, err)
			}
		} else {
			_, err := engine.Allocate(ctx, facility, prod, types.NewQuantityFromInt(-amount))
			if err != nil && !apperror.IsInsufficientStock(err) {
				t.Fatalf("allocate %d: unexpected error: %v", -amount, err)
			}
		}

		for lotID, l := range repo.lots {
			if l.Quantity.IsNegative() {
				t.Fatalf("lot %s went negative: %s", lotID, l.Quantity)
			}
		}
	}
}
