package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fazztrack/backend/internal/period"
)

// TransactionPurger deletes all transactions with occurred_at in [from, to)
// and reports how many rows went away.
type TransactionPurger interface {
	DeleteInRange(ctx context.Context, from, to time.Time) (int64, error)
}

// SnapshotPurger deletes every student's snapshot for one period.
type SnapshotPurger interface {
	DeleteByPeriod(ctx context.Context, month, year int) (int64, error)
}

// RetentionSummary reports what one retention run deleted.
type RetentionSummary struct {
	Period           string `json:"period"`
	DepositsDeleted  int64  `json:"deposits_deleted"`
	ChargesDeleted   int64  `json:"charges_deleted"`
	SnapshotsDeleted int64  `json:"snapshots_deleted"`
}

// Retention irrevocably purges the transactions and snapshots of one period
// across all students. It is scheduled after the rollover for the same
// period has closed it, so the carry-forward survives the raw history.
type Retention struct {
	deposits  TransactionPurger
	charges   TransactionPurger
	snapshots SnapshotPurger
	loc       *time.Location
	log       *slog.Logger
}

func NewRetention(deposits, charges TransactionPurger, snapshots SnapshotPurger, loc *time.Location, log *slog.Logger) *Retention {
	return &Retention{deposits: deposits, charges: charges, snapshots: snapshots, loc: loc, log: log}
}

// RetentionTarget returns the period two calendar months before now in loc.
func RetentionTarget(now time.Time, loc *time.Location) period.Period {
	return period.FromTime(now.In(loc)).Prev().Prev()
}

// Run deletes target's deposits, charges and snapshots. Counts are reported
// even on partial failure so a re-run can pick up where this one stopped.
func (j *Retention) Run(ctx context.Context, target period.Period) (*RetentionSummary, error) {
	from, to := target.Bounds(j.loc)
	summary := &RetentionSummary{Period: target.String()}

	j.log.Info("retention started", "period", target.String(), "from", from, "to", to)

	n, err := j.deposits.DeleteInRange(ctx, from, to)
	if err != nil {
		return summary, fmt.Errorf("delete deposits for %s: %w", target, err)
	}
	summary.DepositsDeleted = n

	n, err = j.charges.DeleteInRange(ctx, from, to)
	if err != nil {
		return summary, fmt.Errorf("delete charges for %s: %w", target, err)
	}
	summary.ChargesDeleted = n

	n, err = j.snapshots.DeleteByPeriod(ctx, int(target.Month), target.Year)
	if err != nil {
		return summary, fmt.Errorf("delete snapshots for %s: %w", target, err)
	}
	summary.SnapshotsDeleted = n

	j.log.Info("retention finished",
		"period", summary.Period,
		"deposits_deleted", summary.DepositsDeleted,
		"charges_deleted", summary.ChargesDeleted,
		"snapshots_deleted", summary.SnapshotsDeleted)
	return summary, nil
}
