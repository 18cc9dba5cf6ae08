package reporting

import (
	"context"
	"testing"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/period"
	"medstock/internal/core/types"
	"medstock/internal/domain"
)

// --- Test doubles ---

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memReportRepo struct {
	reports map[id.ID]*MonthlyReport
	items   map[id.ID]*ReportItem
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{
		reports: make(map[id.ID]*MonthlyReport),
		items:   make(map[id.ID]*ReportItem),
	}
}

func (r *memReportRepo) CreateReport(ctx context.Context, rep *MonthlyReport) error {
	cp := *rep
	r.reports[rep.ID] = &cp
	return nil
}

func (r *memReportRepo) UpdateReport(ctx context.Context, rep *MonthlyReport) error {
	cp := *rep
	r.reports[rep.ID] = &cp
	return nil
}

func (r *memReportRepo) GetReport(ctx context.Context, reportID id.ID) (*MonthlyReport, error) {
	rep, ok := r.reports[reportID]
	if !ok {
		return nil, apperror.NewNotFound("report", reportID.String())
	}
	cp := *rep
	cp.Items = r.itemsOf(reportID)
	return &cp, nil
}

func (r *memReportRepo) GetReportForPeriod(ctx context.Context, facilityID id.ID, p period.Period) (*MonthlyReport, error) {
	for _, rep := range r.reports {
		if rep.FacilityID == facilityID && rep.Period.Equal(p) {
			cp := *rep
			cp.Items = r.itemsOf(rep.ID)
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("report", p.String())
}

func (r *memReportRepo) ListReports(ctx context.Context, facilityID id.ID, filter domain.ListFilter) (domain.ListResult[*MonthlyReport], error) {
	return domain.ListResult[*MonthlyReport]{}, nil
}

func (r *memReportRepo) InsertItems(ctx context.Context, items []*ReportItem) error {
	for _, item := range items {
		cp := *item
		r.items[item.ID] = &cp
	}
	return nil
}

func (r *memReportRepo) DeleteItems(ctx context.Context, reportID id.ID) error {
	for itemID, item := range r.items {
		if item.ReportID == reportID {
			delete(r.items, itemID)
		}
	}
	return nil
}

func (r *memReportRepo) GetItem(ctx context.Context, itemID id.ID) (*ReportItem, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("report item", itemID.String())
	}
	cp := *item
	return &cp, nil
}

func (r *memReportRepo) UpdateItem(ctx context.Context, item *ReportItem) error {
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *memReportRepo) itemsOf(reportID id.ID) []*ReportItem {
	var out []*ReportItem
	for _, item := range r.items {
		if item.ReportID == reportID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out
}

// fakeLedger keys totals by facility/product/period.
type fakeLedger struct {
	received map[string]types.Quantity
	issued   map[string]types.Quantity
	moved    map[id.ID][]id.ID // facility -> products with movements
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		received: make(map[string]types.Quantity),
		issued:   make(map[string]types.Quantity),
		moved:    make(map[id.ID][]id.ID),
	}
}

func ledgerKey(facilityID, productID id.ID, p period.Period) string {
	return facilityID.String() + "/" + productID.String() + "/" + p.String()
}

func (f *fakeLedger) add(facilityID, productID id.ID, p period.Period, received, issued int64) {
	key := ledgerKey(facilityID, productID, p)
	f.received[key] += types.NewQuantityFromInt(received)
	f.issued[key] += types.NewQuantityFromInt(issued)
	f.moved[facilityID] = append(f.moved[facilityID], productID)
}

func (f *fakeLedger) PeriodTotals(ctx context.Context, facilityID, productID id.ID, p period.Period) (types.Quantity, types.Quantity, error) {
	key := ledgerKey(facilityID, productID, p)
	return f.received[key], f.issued[key], nil
}

func (f *fakeLedger) ProductIDsWithMovements(ctx context.Context, facilityID id.ID, p period.Period) ([]id.ID, error) {
	seen := make(map[id.ID]bool)
	var out []id.ID
	for _, pid := range f.moved[facilityID] {
		if !seen[pid] {
			seen[pid] = true
			out = append(out, pid)
		}
	}
	return out, nil
}

type fakeStock struct {
	totals map[id.ID]types.Quantity // by product
}

func (f *fakeStock) TotalQuantity(ctx context.Context, facilityID, productID id.ID) (types.Quantity, error) {
	return f.totals[productID], nil
}

type fakeProducts struct {
	eligible []id.ID
}

func (f *fakeProducts) ListReportEligibleIDs(ctx context.Context) ([]id.ID, error) {
	return f.eligible, nil
}

type memJobRepo struct {
	jobs []*Job
}

func (r *memJobRepo) Enqueue(ctx context.Context, job *Job) error {
	cp := *job
	r.jobs = append(r.jobs, &cp)
	return nil
}

func (r *memJobRepo) DequeuePending(ctx context.Context, limit int) ([]*Job, error) {
	var out []*Job
	for _, j := range r.jobs {
		if j.Status == JobPending && len(out) < limit {
			j.Status = JobRunning
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *memJobRepo) MarkDone(ctx context.Context, jobID id.ID) error {
	return r.setStatus(jobID, JobDone, nil)
}

func (r *memJobRepo) MarkFailed(ctx context.Context, jobID id.ID, message string) error {
	return r.setStatus(jobID, JobFailed, &message)
}

func (r *memJobRepo) setStatus(jobID id.ID, status JobStatus, message *string) error {
	for _, j := range r.jobs {
		if j.ID == jobID {
			j.Status = status
			j.Error = message
			return nil
		}
	}
	return apperror.NewNotFound("job", jobID.String())
}

// --- Fixtures ---

type fixture struct {
	svc      *Service
	repo     *memReportRepo
	ledger   *fakeLedger
	stock    *fakeStock
	products *fakeProducts
	jobs     *memJobRepo
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMemReportRepo(),
		ledger:   newFakeLedger(),
		stock:    &fakeStock{totals: make(map[id.ID]types.Quantity)},
		products: &fakeProducts{},
		jobs:     &memJobRepo{},
	}
	f.svc = NewService(f.repo, f.jobs, f.ledger, f.stock, f.products, noopTxManager{}, nil)
	// Fixed clock: reports for 2026-06 and earlier are complete.
	f.svc.now = func() time.Time {
		return time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func checkClosingIdentity(t *testing.T, item *ReportItem) {
	t.Helper()
	want := item.OpeningBalance + item.StockReceived - item.StockIssued +
		item.PositiveAdjustments - item.NegativeAdjustments
	if item.ClosingBalance != want {
		t.Errorf("closing identity broken: got %s, want %s", item.ClosingBalance, want)
	}
}

func itemFor(report *MonthlyReport, productID id.ID) *ReportItem {
	for _, item := range report.Items {
		if item.ProductID == productID {
			return item
		}
	}
	return nil
}

// --- Tests ---

func TestGenerate_FirstReportUsesLotTotalsAsOpening(t *testing.T) {
	f := newFixture()
	facility, prod := id.New(), id.New()
	p := period.MustParse("2026-06")

	f.stock.totals[prod] = types.NewQuantityFromInt(40)
	f.ledger.add(facility, prod, p, 100, 30)

	report, err := f.svc.Generate(context.Background(), facility, p, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := itemFor(report, prod)
	if item == nil {
		t.Fatal("expected an item for the product")
	}
	if item.OpeningBalance != types.NewQuantityFromInt(40) {
		t.Errorf("expected opening 40 from lot totals, got %s", item.OpeningBalance)
	}
	if item.StockReceived != types.NewQuantityFromInt(100) || item.StockIssued != types.NewQuantityFromInt(30) {
		t.Errorf("wrong totals: received %s, issued %s", item.StockReceived, item.StockIssued)
	}
	if item.ClosingBalance != types.NewQuantityFromInt(110) {
		t.Errorf("expected closing 110, got %s", item.ClosingBalance)
	}
	checkClosingIdentity(t, item)
}

func TestGenerate_OpeningFromPriorClosing(t *testing.T) {
	f := newFixture()
	facility, prod := id.New(), id.New()
	may := period.MustParse("2026-05")
	june := period.MustParse("2026-06")

	f.stock.totals[prod] = types.NewQuantityFromInt(999) // must be ignored once a prior report exists
	f.ledger.add(facility, prod, may, 50, 20)
	f.ledger.add(facility, prod, june, 10, 15)

	if _, err := f.svc.Generate(context.Background(), facility, may, false); err != nil {
		t.Fatalf("generate may: %v", err)
	}
	report, err := f.svc.Generate(context.Background(), facility, june, false)
	if err != nil {
		t.Fatalf("generate june: %v", err)
	}

	item := itemFor(report, prod)
	// May: opening 999 (first report fallback), closing 999+50-20 = 1029.
	if item.OpeningBalance != types.NewQuantityFromInt(1029) {
		t.Errorf("expected june opening 1029 from may closing, got %s", item.OpeningBalance)
	}
	checkClosingIdentity(t, item)
}

func TestGenerate_EligibleProductsGetZeroRows(t *testing.T) {
	f := newFixture()
	facility := id.New()
	moved, dormant := id.New(), id.New()
	p := period.MustParse("2026-06")

	f.ledger.add(facility, moved, p, 5, 0)
	f.products.eligible = []id.ID{dormant}

	report, err := f.svc.Generate(context.Background(), facility, p, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(report.Items))
	}
	zeroRow := itemFor(report, dormant)
	if zeroRow == nil {
		t.Fatal("expected a zero row for the dormant eligible product")
	}
	if !zeroRow.StockReceived.IsZero() || !zeroRow.StockIssued.IsZero() || !zeroRow.ClosingBalance.IsZero() {
		t.Errorf("expected all-zero row, got %+v", zeroRow)
	}
}

func TestGenerate_SecondCallWithoutForceFails(t *testing.T) {
	f := newFixture()
	facility, prod := id.New(), id.New()
	p := period.MustParse("2026-06")
	f.ledger.add(facility, prod, p, 10, 5)

	first, err := f.svc.Generate(context.Background(), facility, p, false)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}

	_, err = f.svc.Generate(context.Background(), facility, p, false)
	if !apperror.IsReportExists(err) {
		t.Fatalf("expected report-exists error, got %v", err)
	}

	// The stored report is unchanged.
	stored, err := f.svc.GetForPeriod(context.Background(), facility, p)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if stored.ID != first.ID || len(stored.Items) != len(first.Items) {
		t.Error("report changed by failed regeneration")
	}
}

func TestGenerate_ForceRecomputesFromLedger(t *testing.T) {
	f := newFixture()
	facility, prod := id.New(), id.New()
	p := period.MustParse("2026-06")
	f.ledger.add(facility, prod, p, 10, 5)

	first, err := f.svc.Generate(context.Background(), facility, p, false)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}

	// Late movements arrive, then a forced regeneration.
	f.ledger.add(facility, prod, p, 20, 0)

	regen, err := f.svc.Generate(context.Background(), facility, p, true)
	if err != nil {
		t.Fatalf("forced generate: %v", err)
	}

	if regen.ID != first.ID {
		t.Error("force must reuse the existing report header")
	}
	item := itemFor(regen, prod)
	if item.StockReceived != types.NewQuantityFromInt(30) {
		t.Errorf("expected regenerated received 30, got %s", item.StockReceived)
	}
	checkClosingIdentity(t, item)

	// Old rows were discarded, not accumulated.
	if len(regen.Items) != 1 {
		t.Errorf("expected 1 item after regeneration, got %d", len(regen.Items))
	}
}

func TestGenerate_ApprovedReportIsLocked(t *testing.T) {
	f := newFixture()
	facility, prod := id.New(), id.New()
	p := period.MustParse("2026-06")
	f.ledger.add(facility, prod, p, 10, 5)
	ctx := context.Background()

	report, err := f.svc.Generate(ctx, facility, p, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.svc.Submit(ctx, report.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Approve(ctx, report.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err = f.svc.Generate(ctx, facility, p, true)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodePeriodClosed {
		t.Fatalf("expected period-closed error, got %v", err)
	}
}

func TestGenerate_IncompletePeriodRejected(t *testing.T) {
	f := newFixture()

	// Clock is mid-July 2026; July has not ended.
	_, err := f.svc.Generate(context.Background(), id.New(), period.MustParse("2026-07"), false)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeInvalidPeriod {
		t.Fatalf("expected invalid-period error, got %v", err)
	}
}

func TestUpdateItem_RecomputesClosing(t *testing.T) {
	f := newFixture()
	facility, prod := id.New(), id.New()
	p := period.MustParse("2026-06")
	f.ledger.add(facility, prod, p, 100, 40)
	ctx := context.Background()

	report, err := f.svc.Generate(ctx, facility, p, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	item := itemFor(report, prod)

	posAdj := types.NewQuantityFromInt(5)
	negAdj := types.NewQuantityFromInt(2)
	days := 3
	updated, err := f.svc.UpdateItem(ctx, item.ID, ItemEdit{
		PositiveAdjustments: &posAdj,
		NegativeAdjustments: &negAdj,
		StockoutDays:        &days,
	})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}

	// 0 + 100 - 40 + 5 - 2 = 63
	if updated.ClosingBalance != types.NewQuantityFromInt(63) {
		t.Errorf("expected closing 63, got %s", updated.ClosingBalance)
	}
	if updated.StockoutDays != 3 {
		t.Errorf("expected stockout days 3, got %d", updated.StockoutDays)
	}
	checkClosingIdentity(t, updated)
}

func TestUpdateItem_ApprovedReportRejected(t *testing.T) {
	f := newFixture()
	facility, prod := id.New(), id.New()
	p := period.MustParse("2026-06")
	f.ledger.add(facility, prod, p, 10, 0)
	ctx := context.Background()

	report, _ := f.svc.Generate(ctx, facility, p, false)
	_, _ = f.svc.Submit(ctx, report.ID)
	_, _ = f.svc.Approve(ctx, report.ID)

	days := 1
	_, err := f.svc.UpdateItem(ctx, report.Items[0].ID, ItemEdit{StockoutDays: &days})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodePeriodClosed {
		t.Fatalf("expected period-closed error, got %v", err)
	}
}

func TestProcessPending_RunsQueuedJobs(t *testing.T) {
	f := newFixture()
	facility, prod := id.New(), id.New()
	p := period.MustParse("2026-06")
	f.ledger.add(facility, prod, p, 10, 5)
	ctx := context.Background()

	job, err := f.svc.EnqueueGeneration(ctx, facility, p, false, "worker-test")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	n, err := f.svc.ProcessPending(ctx, 10)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 job processed, got %d", n)
	}
	if f.jobs.jobs[0].ID != job.ID || f.jobs.jobs[0].Status != JobDone {
		t.Errorf("expected job done, got %s", f.jobs.jobs[0].Status)
	}

	if _, err := f.svc.GetForPeriod(ctx, facility, p); err != nil {
		t.Errorf("expected report to exist after job run: %v", err)
	}

	// A duplicate job without force fails and is marked as such.
	if _, err := f.svc.EnqueueGeneration(ctx, facility, p, false, "worker-test"); err != nil {
		t.Fatalf("enqueue duplicate: %v", err)
	}
	if _, err := f.svc.ProcessPending(ctx, 10); err != nil {
		t.Fatalf("process duplicate: %v", err)
	}
	last := f.jobs.jobs[len(f.jobs.jobs)-1]
	if last.Status != JobFailed || last.Error == nil {
		t.Errorf("expected duplicate job to fail, got %s", last.Status)
	}
}
