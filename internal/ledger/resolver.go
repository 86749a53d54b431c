package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fazztrack/backend/internal/models"
	"github.com/fazztrack/backend/internal/period"
)

// ErrPeriodOpen is returned when a snapshot is requested for the current or
// a future period. Open periods have no closing balance; callers that want
// the live position must sum transactions directly.
var ErrPeriodOpen = errors.New("period is not closed yet")

// ErrNoHistory is returned when the requested period has no transactions, no
// prior snapshot, and no activity anywhere in the backfill window. This is
// distinct from a computed zero balance, which is a real snapshot.
var ErrNoHistory = errors.New("no ledger history for student")

// SnapshotStore is the persistence surface the resolver needs. Get returns
// (nil, nil) on a missing row.
type SnapshotStore interface {
	Get(ctx context.Context, studentID uuid.UUID, month, year int) (*models.Snapshot, error)
	Upsert(ctx context.Context, s *models.Snapshot) error
}

// Resolver serves the snapshot read path: cache hit from the store, or lazy
// backfill of missing closed periods. Resolution is idempotent; repeated
// calls after the first materialization return the stored row.
type Resolver struct {
	snapshots   SnapshotStore
	calc        *Calculator
	loc         *time.Location
	maxBackfill int
}

// NewResolver builds a resolver. maxBackfill bounds how many months the lazy
// backfill walks looking for an anchor snapshot; history older than that
// contributes zero carry.
func NewResolver(snapshots SnapshotStore, calc *Calculator, loc *time.Location, maxBackfill int) *Resolver {
	return &Resolver{snapshots: snapshots, calc: calc, loc: loc, maxBackfill: maxBackfill}
}

// Resolve returns the snapshot for (studentID, p). The reference instant now
// is injected rather than read from the wall clock so manual and backfill
// invocations stay deterministic.
func (r *Resolver) Resolve(ctx context.Context, studentID uuid.UUID, p period.Period, now time.Time) (*models.Snapshot, error) {
	current := period.FromTime(now.In(r.loc))
	if !p.Before(current) {
		return nil, fmt.Errorf("resolve %s: %w", p, ErrPeriodOpen)
	}

	snap, err := r.snapshots.Get(ctx, studentID, int(p.Month), p.Year)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}
	return r.backfill(ctx, studentID, p)
}

// backfill walks back from target to the nearest stored snapshot (bounded by
// maxBackfill), then rolls forward month by month, persisting a snapshot for
// every month with activity. Inactive months are never materialized: their
// position is whatever the most recent earlier snapshot says.
func (r *Resolver) backfill(ctx context.Context, studentID uuid.UUID, target period.Period) (*models.Snapshot, error) {
	var carry Balance
	var latest *models.Snapshot

	start := target
	for q := target.Prev(); target.Sub(q) <= r.maxBackfill; q = q.Prev() {
		snap, err := r.snapshots.Get(ctx, studentID, int(q.Month), q.Year)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			carry = Balance{PendingCredit: snap.PendingCredit, PendingDebit: snap.PendingDebit}
			latest = snap
			break
		}
		start = q
	}

	for m := start; !target.Before(m); m = m.Next() {
		act, err := r.calc.Activity(ctx, studentID, m)
		if err != nil {
			return nil, err
		}
		if !act.HasTransactions() {
			continue
		}
		bal := Split(act.Deposits.Sub(act.Charges).Add(carry.Net()))
		snap := &models.Snapshot{
			ID:            uuid.New(),
			StudentID:     studentID,
			Month:         int(m.Month),
			Year:          m.Year,
			PendingCredit: bal.PendingCredit,
			PendingDebit:  bal.PendingDebit,
		}
		if err := r.snapshots.Upsert(ctx, snap); err != nil {
			return nil, err
		}
		carry = bal
		latest = snap
	}

	if latest == nil {
		return nil, fmt.Errorf("resolve %s for student %s: %w", target, studentID, ErrNoHistory)
	}
	return latest, nil
}

// CarryInto returns the opening balance for period p: the closing position
// of the most recent snapshot strictly before p. A student with no history
// opens at zero.
func (r *Resolver) CarryInto(ctx context.Context, studentID uuid.UUID, p period.Period, now time.Time) (Balance, error) {
	snap, err := r.Resolve(ctx, studentID, p.Prev(), now)
	if err != nil {
		if errors.Is(err, ErrNoHistory) {
			return Balance{}, nil
		}
		return Balance{}, err
	}
	return Balance{PendingCredit: snap.PendingCredit, PendingDebit: snap.PendingDebit}, nil
}
