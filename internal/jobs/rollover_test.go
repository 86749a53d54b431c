package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fazztrack/backend/internal/ledger"
	"github.com/fazztrack/backend/internal/models"
	"github.com/fazztrack/backend/internal/period"
)

// ---------------------------------------------------------------------------
// In-memory mocks. Sums are keyed by student so each account can have its
// own activity; the snapshot store records upserts.
// ---------------------------------------------------------------------------

type mockStudents struct {
	ids []uuid.UUID
}

func (m *mockStudents) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	return m.ids, nil
}

type studentSums struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]decimal.Decimal
	failFor  map[uuid.UUID]bool
}

func (m *studentSums) SumByStudent(_ context.Context, studentID uuid.UUID, _, _ time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[studentID] {
		return decimal.Zero, errors.New("store unavailable")
	}
	if v, ok := m.byID[studentID]; ok {
		return v, nil
	}
	return decimal.Zero, nil
}

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
	cp := *s
	m.rows[snapKey{s.StudentID, s.Month, s.Year}] = &cp
	return nil
}

func (m *mockSnapshots) get(studentID uuid.UUID, month, year int) *models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[snapKey{studentID, month, year}]
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRollover(students *mockStudents, deposits, charges *studentSums, snaps *mockSnapshots) *Rollover {
	calc := ledger.NewCalculator(deposits, charges, time.UTC)
	return NewRollover(students, calc, snaps, discard())
}

var march = period.Period{Month: time.March, Year: 2026}

func TestRolloverSnapshotsActiveStudents(t *testing.T) {
	active := uuid.New()
	idle := uuid.New()
	students := &mockStudents{ids: []uuid.UUID{active, idle}}
	deposits := &studentSums{byID: map[uuid.UUID]decimal.Decimal{active: dec("100")}}
	charges := &studentSums{byID: map[uuid.UUID]decimal.Decimal{active: dec("30")}}
	snaps := newMockSnapshots()

	summary, err := newRollover(students, deposits, charges, snaps).Run(context.Background(), march)
	if err != nil {
		t.Fatal(err)
	}

	if summary.Scanned != 2 || summary.WithActivity != 1 || summary.Snapshotted != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	snap := snaps.get(active, 3, 2026)
	if snap == nil || !snap.PendingCredit.Equal(dec("70")) || !snap.PendingDebit.IsZero() {
		t.Fatalf("active snapshot = %+v, want credit 70", snap)
	}
	if snaps.get(idle, 3, 2026) != nil {
		t.Fatal("idle student got a snapshot")
	}
}

func TestRolloverAppliesPriorCarry(t *testing.T) {
	student := uuid.New()
	students := &mockStudents{ids: []uuid.UUID{student}}
	// April: no deposits, charged 90; the March snapshot carries +70.
	prior := &models.Snapshot{
		ID: uuid.New(), StudentID: student, Month: 3, Year: 2026,
		PendingCredit: dec("70"), PendingDebit: decimal.Zero,
	}
	deposits := &studentSums{}
	charges := &studentSums{byID: map[uuid.UUID]decimal.Decimal{student: dec("90")}}
	snaps := newMockSnapshots(prior)

	april := period.Period{Month: time.April, Year: 2026}
	if _, err := newRollover(students, deposits, charges, snaps).Run(context.Background(), april); err != nil {
		t.Fatal(err)
	}

	snap := snaps.get(student, 4, 2026)
	if snap == nil || !snap.PendingDebit.Equal(dec("20")) || !snap.PendingCredit.IsZero() {
		t.Fatalf("April snapshot = %+v, want debit 20", snap)
	}
}

func TestRolloverIsolatesFailures(t *testing.T) {
	ok1, bad, ok2 := uuid.New(), uuid.New(), uuid.New()
	students := &mockStudents{ids: []uuid.UUID{ok1, bad, ok2}}
	deposits := &studentSums{
		byID:    map[uuid.UUID]decimal.Decimal{ok1: dec("10"), ok2: dec("20")},
		failFor: map[uuid.UUID]bool{bad: true},
	}
	charges := &studentSums{}
	snaps := newMockSnapshots()

	summary, err := newRollover(students, deposits, charges, snaps).Run(context.Background(), march)
	if err != nil {
		t.Fatal(err)
	}

	if summary.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", summary.Failed)
	}
	if summary.Snapshotted != 2 {
		t.Fatalf("Snapshotted = %d, want 2: the batch must continue past a failure", summary.Snapshotted)
	}
}

func TestRolloverRerunOverwrites(t *testing.T) {
	student := uuid.New()
	students := &mockStudents{ids: []uuid.UUID{student}}
	deposits := &studentSums{byID: map[uuid.UUID]decimal.Decimal{student: dec("50")}}
	charges := &studentSums{}
	snaps := newMockSnapshots()
	job := newRollover(students, deposits, charges, snaps)

	if _, err := job.Run(context.Background(), march); err != nil {
		t.Fatal(err)
	}
	if _, err := job.Run(context.Background(), march); err != nil {
		t.Fatal(err)
	}

	snap := snaps.get(student, 3, 2026)
	if snap == nil || !snap.PendingCredit.Equal(dec("50")) {
		t.Fatalf("snapshot after rerun = %+v, want credit 50", snap)
	}
	if n := len(snaps.rows); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestDefaultTarget(t *testing.T) {
	loc, err := time.LoadLocation("America/Guayaquil")
	if err != nil {
		t.Fatal(err)
	}
	// Firing at the boundary: first of June, 02:00 local => May just closed.
	now := time.Date(2026, time.June, 1, 2, 0, 0, 0, loc)
	if got := DefaultTarget(now, loc); got != (period.Period{Month: time.May, Year: 2026}) {
		t.Fatalf("DefaultTarget = %v", got)
	}
	// January boundary wraps the year.
	now = time.Date(2026, time.January, 1, 2, 0, 0, 0, loc)
	if got := DefaultTarget(now, loc); got != (period.Period{Month: time.December, Year: 2025}) {
		t.Fatalf("DefaultTarget = %v", got)
	}
}
