// Package jobs holds the period-boundary batches: the monthly rollover that
// closes a period by materializing snapshots, and the retention purge that
// trims old history. Both take an explicit target period; schedules decide
// when, the jobs decide what.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fazztrack/backend/internal/ledger"
	"github.com/fazztrack/backend/internal/models"
	"github.com/fazztrack/backend/internal/period"
)

// defaultBatchSize bounds the per-student fan-out so the batch doesn't
// overwhelm the store.
const defaultBatchSize = 5

// StudentLister enumerates every account id.
type StudentLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SnapshotStore is what the rollover needs from the snapshot repository.
type SnapshotStore interface {
	Get(ctx context.Context, studentID uuid.UUID, month, year int) (*models.Snapshot, error)
	Upsert(ctx context.Context, s *models.Snapshot) error
}

// RolloverSummary reports the aggregate outcome of one rollover run.
// Individual failures are logged, counted, and never abort the batch.
type RolloverSummary struct {
	Period       string `json:"period"`
	Scanned      int    `json:"scanned"`
	WithActivity int    `json:"with_activity"`
	Snapshotted  int    `json:"snapshotted"`
	Failed       int    `json:"failed"`
}

// Rollover materializes every active student's snapshot for a just-closed
// period. Re-running it for the same period overwrites with the same
// deterministic values.
type Rollover struct {
	students  StudentLister
	calc      *ledger.Calculator
	snapshots SnapshotStore
	log       *slog.Logger
	batchSize int
}

func NewRollover(students StudentLister, calc *ledger.Calculator, snapshots SnapshotStore, log *slog.Logger) *Rollover {
	return &Rollover{
		students:  students,
		calc:      calc,
		snapshots: snapshots,
		log:       log,
		batchSize: defaultBatchSize,
	}
}

// DefaultTarget returns the period that just closed relative to now in loc.
func DefaultTarget(now time.Time, loc *time.Location) period.Period {
	return period.FromTime(now.In(loc)).Prev()
}

// Run closes target for all students with activity in it. Students with no
// deposits and no charges in the target period are skipped entirely; their
// most recent snapshot remains the last word on their position.
func (j *Rollover) Run(ctx context.Context, target period.Period) (*RolloverSummary, error) {
	j.log.Info("rollover started", "period", target.String())

	ids, err := j.students.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RolloverSummary{Period: target.String(), Scanned: len(ids)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(j.batchSize)
	for _, id := range ids {
		g.Go(func() error {
			active, err := j.closeStudent(ctx, id, target)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				j.log.Error("rollover: student failed",
					"student_id", id, "period", target.String(), "error", err)
			case active:
				summary.WithActivity++
				summary.Snapshotted++
			}
			return nil
		})
	}
	_ = g.Wait()

	j.log.Info("rollover finished",
		"period", summary.Period,
		"scanned", summary.Scanned,
		"with_activity", summary.WithActivity,
		"snapshotted", summary.Snapshotted,
		"failed", summary.Failed)
	return summary, nil
}

// closeStudent computes and upserts one student's snapshot for target.
// Returns false when the student had no activity in the period.
func (j *Rollover) closeStudent(ctx context.Context, studentID uuid.UUID, target period.Period) (bool, error) {
	act, err := j.calc.Activity(ctx, studentID, target)
	if err != nil {
		return false, err
	}
	if !act.HasTransactions() {
		return false, nil
	}

	// The prior snapshot is read directly; a missing one means zero carry
	// (the student's first active month, or history already purged).
	prev := target.Prev()
	prior, err := j.snapshots.Get(ctx, studentID, int(prev.Month), prev.Year)
	if err != nil {
		return false, err
	}
	carry := ledger.Balance{}
	if prior != nil {
		carry = ledger.Balance{PendingCredit: prior.PendingCredit, PendingDebit: prior.PendingDebit}
	}

	bal := ledger.Split(act.Deposits.Sub(act.Charges).Add(carry.Net()))
	snap := &models.Snapshot{
		ID:            uuid.New(),
		StudentID:     studentID,
		Month:         int(target.Month),
		Year:          target.Year,
		PendingCredit: bal.PendingCredit,
		PendingDebit:  bal.PendingDebit,
	}
	return true, j.snapshots.Upsert(ctx, snap)
}
