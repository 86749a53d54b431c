package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fazztrack/backend/internal/models"
	"github.com/fazztrack/backend/internal/period"
)

// --- in-memory snapshot store keyed by (student, month, year) ---

type snapKey struct {
	student uuid.UUID
	month   int
	year    int
}

type mockSnapshots struct {
	mu      sync.Mutex
	rows    map[snapKey]*models.Snapshot
	upserts int
}

func newMockSnapshots(rows ...*models.Snapshot) *mockSnapshots {
	m := &mockSnapshots{rows: make(map[snapKey]*models.Snapshot)}
	for _, s := range rows {
		cp := *s
		m.rows[snapKey{s.StudentID, s.Month, s.Year}] = &cp
	}
	return m
}

func (m *mockSnapshots) Get(_ context.Context, studentID uuid.UUID, month, year int) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[snapKey{studentID, month, year}]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSnapshots) Upsert(_ context.Context, s *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	key := snapKey{s.StudentID, s.Month, s.Year}
	if existing, ok := m.rows[key]; ok {
		existing.PendingCredit = s.PendingCredit
		existing.PendingDebit = s.PendingDebit
		s.ID = existing.ID
		return nil
	}
	cp := *s
	m.rows[key] = &cp
	return nil
}

func (m *mockSnapshots) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func snapshotFor(studentID uuid.UUID, p period.Period, credit, debit string) *models.Snapshot {
	return &models.Snapshot{
		ID:            uuid.New(),
		StudentID:     studentID,
		Month:         int(p.Month),
		Year:          p.Year,
		PendingCredit: dec(credit),
		PendingDebit:  dec(debit),
	}
}

func testResolver(store *mockSnapshots, deposits, charges map[string]decimal.Decimal) *Resolver {
	calc := testCalculator(deposits, charges)
	return NewResolver(store, calc, time.UTC, 12)
}

// now is mid-June 2026 for every test: periods up to May 2026 are closed.
var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestResolveRefusesOpenPeriod(t *testing.T) {
	store := newMockSnapshots()
	r := testResolver(store, nil, nil)

	_, err := r.Resolve(context.Background(), uuid.New(), period.Period{Month: time.June, Year: 2026}, testNow)
	if !errors.Is(err, ErrPeriodOpen) {
		t.Fatalf("current period: err = %v, want ErrPeriodOpen", err)
	}
	_, err = r.Resolve(context.Background(), uuid.New(), period.Period{Month: time.September, Year: 2026}, testNow)
	if !errors.Is(err, ErrPeriodOpen) {
		t.Fatalf("future period: err = %v, want ErrPeriodOpen", err)
	}
	if store.upserts != 0 {
		t.Fatalf("open-period resolve persisted %d snapshots", store.upserts)
	}
}

func TestResolveHitReturnsStoredRow(t *testing.T) {
	student := uuid.New()
	march := period.Period{Month: time.March, Year: 2026}
	stored := snapshotFor(student, march, "70", "0")
	store := newMockSnapshots(stored)
	r := testResolver(store, nil, nil)

	got, err := r.Resolve(context.Background(), student, march, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != stored.ID {
		t.Fatalf("got snapshot %s, want stored %s", got.ID, stored.ID)
	}
	if store.upserts != 0 {
		t.Fatalf("hit path wrote %d snapshots", store.upserts)
	}
}

func TestResolveBackfillsAndPersists(t *testing.T) {
	student := uuid.New()
	store := newMockSnapshots()
	r := testResolver(store,
		map[string]decimal.Decimal{"2026-03": dec("100")},
		map[string]decimal.Decimal{"2026-03": dec("30"), "2026-04": dec("90")},
	)

	april := period.Period{Month: time.April, Year: 2026}
	got, err := r.Resolve(context.Background(), student, april, testNow)
	if err != nil {
		t.Fatal(err)
	}

	// March closes at +70, April at -20. Both months had activity, so both
	// snapshots are materialized.
	if got.Month != 4 || got.Year != 2026 {
		t.Fatalf("resolved period = %d/%d", got.Month, got.Year)
	}
	if !got.PendingDebit.Equal(dec("20")) || !got.PendingCredit.IsZero() {
		t.Fatalf("April = {credit: %s, debit: %s}, want {0, 20}", got.PendingCredit, got.PendingDebit)
	}
	marchSnap, _ := store.Get(context.Background(), student, 3, 2026)
	if marchSnap == nil || !marchSnap.PendingCredit.Equal(dec("70")) {
		t.Fatalf("March snapshot = %+v, want credit 70", marchSnap)
	}
	if store.count() != 2 {
		t.Fatalf("store holds %d snapshots, want 2", store.count())
	}
}

func TestResolveIdempotent(t *testing.T) {
	student := uuid.New()
	store := newMockSnapshots()
	r := testResolver(store,
		map[string]decimal.Decimal{"2026-04": dec("25")},
		nil,
	)
	april := period.Period{Month: time.April, Year: 2026}

	first, err := r.Resolve(context.Background(), student, april, testNow)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), student, april, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("second resolve returned a different row: %s vs %s", first.ID, second.ID)
	}
	if store.count() != 1 {
		t.Fatalf("store holds %d snapshots, want 1", store.count())
	}
	if store.upserts != 1 {
		t.Fatalf("upserts = %d, want 1", store.upserts)
	}
}

func TestResolveInactiveMonthReturnsPriorSnapshot(t *testing.T) {
	// Student B: April snapshot exists, May had no activity. Resolving May
	// yields the April row; no May row is fabricated.
	student := uuid.New()
	april := period.Period{Month: time.April, Year: 2026}
	stored := snapshotFor(student, april, "15", "0")
	store := newMockSnapshots(stored)
	r := testResolver(store, nil, nil)

	got, err := r.Resolve(context.Background(), student, period.Period{Month: time.May, Year: 2026}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != stored.ID {
		t.Fatalf("got %s, want prior snapshot %s", got.ID, stored.ID)
	}
	if store.count() != 1 {
		t.Fatalf("store holds %d snapshots, want 1 (no May row)", store.count())
	}
}

func TestResolveNoHistory(t *testing.T) {
	store := newMockSnapshots()
	r := testResolver(store, nil, nil)

	_, err := r.Resolve(context.Background(), uuid.New(), period.Period{Month: time.April, Year: 2026}, testNow)
	if !errors.Is(err, ErrNoHistory) {
		t.Fatalf("err = %v, want ErrNoHistory", err)
	}
	if store.upserts != 0 {
		t.Fatalf("no-history resolve persisted %d snapshots", store.upserts)
	}
}

func TestResolveCarryAcrossInactiveGap(t *testing.T) {
	// Activity in February and May only. Resolving May must carry February's
	// +40 across the inactive gap: 40 - 10 = +30.
	student := uuid.New()
	store := newMockSnapshots()
	r := testResolver(store,
		map[string]decimal.Decimal{"2026-02": dec("40")},
		map[string]decimal.Decimal{"2026-05": dec("10")},
	)

	got, err := r.Resolve(context.Background(), student, period.Period{Month: time.May, Year: 2026}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !got.PendingCredit.Equal(dec("30")) {
		t.Fatalf("May credit = %s, want 30", got.PendingCredit)
	}
	// February and May materialized; March and April skipped.
	if store.count() != 2 {
		t.Fatalf("store holds %d snapshots, want 2", store.count())
	}
}

func TestCarryInto(t *testing.T) {
	student := uuid.New()
	may := period.Period{Month: time.May, Year: 2026}
	store := newMockSnapshots(snapshotFor(student, may, "0", "12"))
	r := testResolver(store, nil, nil)

	carry, err := r.CarryInto(context.Background(), student, period.Period{Month: time.June, Year: 2026}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !carry.PendingDebit.Equal(dec("12")) {
		t.Fatalf("carry debit = %s, want 12", carry.PendingDebit)
	}

	// Unknown student opens at zero.
	carry, err = r.CarryInto(context.Background(), uuid.New(), period.Period{Month: time.June, Year: 2026}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !carry.IsZero() {
		t.Fatalf("carry = %v, want zero", carry)
	}
}
