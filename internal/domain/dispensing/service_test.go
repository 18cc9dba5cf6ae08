package dispensing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/internal/domain/inventory/allocation"
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/ledger"
	"medstock/pkg/numerator"
)

// --- Test doubles ---

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type seqRow struct{ val int64 }

func (r *seqRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = r.val
	}
	return nil
}

type seqQuerier struct{ current int64 }

func (q *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.current++
	return &seqRow{val: q.current}
}

type memLots struct {
	lots map[id.ID]*entity.Lot
}

func newMemLots(lots ...*entity.Lot) *memLots {
	r := &memLots{lots: make(map[id.ID]*entity.Lot)}
	for _, l := range lots {
		cp := *l
		r.lots[l.ID] = &cp
	}
	return r
}

func (r *memLots) Create(ctx context.Context, l *entity.Lot) error {
	cp := *l
	r.lots[l.ID] = &cp
	return nil
}

func (r *memLots) GetByID(ctx context.Context, lotID id.ID) (*entity.Lot, error) {
	if l, ok := r.lots[lotID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, apperror.NewNotFound("lot", lotID.String())
}

func (r *memLots) GetForUpdate(ctx context.Context, lotID id.ID) (*entity.Lot, error) {
	return r.GetByID(ctx, lotID)
}

func (r *memLots) GetByBatchForUpdate(ctx context.Context, facilityID, productID id.ID, batchNumber string) (*entity.Lot, error) {
	for _, l := range r.lots {
		if l.FacilityID == facilityID && l.ProductID == productID && l.BatchNumber == batchNumber {
			cp := *l
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("lot", batchNumber)
}

func (r *memLots) FindIssuable(ctx context.Context, facilityID, productID id.ID) ([]*entity.Lot, error) {
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

func (r *memLots) UpdateQuantity(ctx context.Context, lotID id.ID, qty types.Quantity) error {
	l, ok := r.lots[lotID]
	if !ok {
		return apperror.NewNotFound("lot", lotID.String())
	}
	l.Quantity = qty
	return nil
}

func (r *memLots) TotalQuantity(ctx context.Context, facilityID, productID id.ID) (types.Quantity, error) {
	var total types.Quantity
	for _, l := range r.lots {
		if l.FacilityID == facilityID && l.ProductID == productID {
			total += l.Quantity
		}
	}
	return total, nil
}

func (r *memLots) List(ctx context.Context, filter lot.ListFilter) (domain.ListResult[*entity.Lot], error) {
	return domain.ListResult[*entity.Lot]{}, nil
}

type memLedger struct {
	movements []*entity.Movement
}

func (r *memLedger) Insert(ctx context.Context, m *entity.Movement) error {
	cp := *m
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *memLedger) InsertBatch(ctx context.Context, movements []*entity.Movement) error {
	for _, m := range movements {
		if err := r.Insert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *memLedger) SumByTypeAndPeriod(ctx context.Context, facilityID, productID id.ID, mType entity.MovementType, from, to time.Time) (types.Quantity, error) {
	var total types.Quantity
	for _, m := range r.movements {
		if m.FacilityID == facilityID && m.ProductID == productID && m.MovementType == mType &&
			!m.MovementDate.Before(from) && m.MovementDate.Before(to) {
			total += m.Quantity()
		}
	}
	return total, nil
}

func (r *memLedger) ProductIDsWithMovements(ctx context.Context, facilityID id.ID, from, to time.Time) ([]id.ID, error) {
	return nil, nil
}

func (r *memLedger) List(ctx context.Context, filter ledger.Filter) (domain.ListResult[*entity.Movement], error) {
	return domain.ListResult[*entity.Movement]{}, nil
}

type memDispenseRepo struct {
	created []*Dispense
}

func (r *memDispenseRepo) Create(ctx context.Context, d *Dispense) error {
	cp := *d
	r.created = append(r.created, &cp)
	return nil
}

func (r *memDispenseRepo) SaveLines(ctx context.Context, docID id.ID, lines []DispenseLine) error {
	return nil
}

func (r *memDispenseRepo) GetByID(ctx context.Context, docID id.ID) (*Dispense, error) {
	for _, d := range r.created {
		if d.ID == docID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("dispense", docID.String())
}

func (r *memDispenseRepo) GetLines(ctx context.Context, docID id.ID) ([]DispenseLine, error) {
	return nil, nil
}

func (r *memDispenseRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Dispense], error) {
	return domain.ListResult[*Dispense]{}, nil
}

// --- Fixtures ---

type fixture struct {
	svc    *Service
	lots   *memLots
	ledger *memLedger
	docs   *memDispenseRepo
}

func newFixture(lots ...*entity.Lot) *fixture {
	f := &fixture{
		lots:   newMemLots(lots...),
		ledger: &memLedger{},
		docs:   &memDispenseRepo{},
	}
	txm := noopTxManager{}
	store := lot.NewService(f.lots, txm)
	engine := allocation.NewEngine(store, txm)
	ledgerSvc := ledger.NewService(f.ledger)
	num := numerator.New(&seqQuerier{})
	f.svc = NewService(f.docs, engine, ledgerSvc, num, txm)
	return f
}

func dateP(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func makeLot(facilityID, productID id.ID, batch string, qty int64, expiry *time.Time) *entity.Lot {
	l := entity.NewLot(facilityID, productID, batch, expiry, types.NewQuantityFromInt(qty), "tablet", "")
	return &l
}

// --- Tests ---

func TestCreate_PatientDispensePostsMovements(t *testing.T) {
	facility, prod := id.New(), id.New()
	a := makeLot(facility, prod, "A", 5, dateP(2027, time.January, 1))
	b := makeLot(facility, prod, "B", 10, dateP(2027, time.March, 1))
	f := newFixture(a, b)

	doc := NewDispense(TypePatient, facility)
	ref := "OPD-1234"
	doc.PatientRef = &ref
	doc.AddLine(prod, types.NewQuantityFromInt(8))

	if err := f.svc.Create(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Number == "" {
		t.Error("expected a generated document number")
	}

	// Lot A drained, 3 taken from B.
	if got := f.lots.lots[a.ID].Quantity; !got.IsZero() {
		t.Errorf("lot A: expected 0, got %s", got)
	}
	if got := f.lots.lots[b.ID].Quantity; got != types.NewQuantityFromInt(7) {
		t.Errorf("lot B: expected 7, got %s", got)
	}

	// One issued movement per consumed lot, attributed to the dispense.
	if len(f.ledger.movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(f.ledger.movements))
	}
	for _, m := range f.ledger.movements {
		if m.MovementType != entity.MovementIssued {
			t.Errorf("expected issued movement, got %s", m.MovementType)
		}
		if m.SourceType != entity.SourceDispense {
			t.Errorf("expected dispense source, got %s", m.SourceType)
		}
		if m.SourceID != doc.ID {
			t.Error("movement not attributed to the document")
		}
		if m.ReferenceNumber != doc.Number {
			t.Errorf("expected reference %s, got %s", doc.Number, m.ReferenceNumber)
		}
	}
	var issued types.Quantity
	for _, m := range f.ledger.movements {
		issued += m.IssuedQuantity
	}
	if issued != types.NewQuantityFromInt(8) {
		t.Errorf("expected 8 issued in total, got %s", issued)
	}

	if len(f.docs.created) != 1 {
		t.Errorf("expected 1 saved document, got %d", len(f.docs.created))
	}
}

func TestCreate_InsufficientStockAborts(t *testing.T) {
	facility, prod := id.New(), id.New()
	a := makeLot(facility, prod, "A", 3, dateP(2027, time.January, 1))
	f := newFixture(a)

	doc := NewDispense(TypePatient, facility)
	doc.AddLine(prod, types.NewQuantityFromInt(10))

	err := f.svc.Create(context.Background(), doc)
	if !apperror.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	if got := f.lots.lots[a.ID].Quantity; got != types.NewQuantityFromInt(3) {
		t.Errorf("lot changed on failed dispense: %s", got)
	}
	if len(f.ledger.movements) != 0 {
		t.Errorf("expected no movements, got %d", len(f.ledger.movements))
	}
	if len(f.docs.created) != 0 {
		t.Errorf("expected no saved document, got %d", len(f.docs.created))
	}
}

func TestCreate_BulkShortageReportsEveryShortLine(t *testing.T) {
	facility := id.New()
	prodA, prodB, prodC := id.New(), id.New(), id.New()
	f := newFixture(
		makeLot(facility, prodA, "A1", 5, nil),
		makeLot(facility, prodB, "B1", 2, nil),
		makeLot(facility, prodC, "C1", 100, nil),
	)

	doc := NewDispense(TypeMOHBulk, facility)
	recipient := "Malaria Program"
	doc.Recipient = &recipient
	doc.AddLine(prodA, types.NewQuantityFromInt(10)) // short by 5
	doc.AddLine(prodB, types.NewQuantityFromInt(8))  // short by 6
	doc.AddLine(prodC, types.NewQuantityFromInt(50)) // covered

	err := f.svc.Create(context.Background(), doc)
	if !apperror.IsInsufficientStock(err) {
		t.Fatalf("expected shortage error, got %v", err)
	}

	appErr, _ := apperror.AsAppError(err)
	shortages, ok := appErr.Details["shortages"].([]map[string]any)
	if !ok {
		t.Fatalf("expected shortages detail, got %T", appErr.Details["shortages"])
	}
	if len(shortages) != 2 {
		t.Fatalf("expected 2 short lines, got %d", len(shortages))
	}

	// Nothing was touched: the check runs before any deduction.
	for _, l := range f.lots.lots {
		switch l.BatchNumber {
		case "A1":
			if l.Quantity != types.NewQuantityFromInt(5) {
				t.Errorf("lot A1 changed: %s", l.Quantity)
			}
		case "C1":
			if l.Quantity != types.NewQuantityFromInt(100) {
				t.Errorf("lot C1 changed: %s", l.Quantity)
			}
		}
	}
	if len(f.ledger.movements) != 0 {
		t.Errorf("expected no movements, got %d", len(f.ledger.movements))
	}
}

func TestCreate_MOHBulkSourceAttribution(t *testing.T) {
	facility, prod := id.New(), id.New()
	f := newFixture(makeLot(facility, prod, "A", 20, nil))

	doc := NewDispense(TypeMOHBulk, facility)
	recipient := "TB Program"
	doc.Recipient = &recipient
	doc.AddLine(prod, types.NewQuantityFromInt(15))

	if err := f.svc.Create(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ledger.movements[0].SourceType != entity.SourceMOHDispense {
		t.Errorf("expected moh_dispense source, got %s", f.ledger.movements[0].SourceType)
	}
}

func TestCreate_RejectsEmptyDocument(t *testing.T) {
	f := newFixture()
	doc := NewDispense(TypePatient, id.New())

	if err := f.svc.Create(context.Background(), doc); err == nil {
		t.Fatal("expected validation error for empty document")
	}
}
