package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/fazztrack/backend/internal/period"
)

// RolloverArgs selects the rollover target. Zero month/year means "the
// period that just closed" at the time the job runs, which is what the
// periodic schedule enqueues.
type RolloverArgs struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (RolloverArgs) Kind() string { return "monthly_rollover" }

// RetentionArgs selects the retention target. Zero month/year means "two
// months before now".
type RetentionArgs struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (RetentionArgs) Kind() string { return "retention_cleanup" }

// targetFromArgs resolves an explicit or defaulted period. now is injected
// by the worker so manual enqueues with explicit args stay reproducible.
func targetFromArgs(month, year int, def func(time.Time, *time.Location) period.Period, now time.Time, loc *time.Location) (period.Period, error) {
	if month == 0 && year == 0 {
		return def(now, loc), nil
	}
	return period.New(month, year)
}

// RolloverWorker runs the rollover batch under river.
type RolloverWorker struct {
	river.WorkerDefaults[RolloverArgs]
	job *Rollover
	loc *time.Location
	now func() time.Time
}

func NewRolloverWorker(job *Rollover, loc *time.Location) *RolloverWorker {
	return &RolloverWorker{job: job, loc: loc, now: time.Now}
}

func (w *RolloverWorker) Work(ctx context.Context, j *river.Job[RolloverArgs]) error {
	target, err := targetFromArgs(j.Args.Month, j.Args.Year, DefaultTarget, w.now(), w.loc)
	if err != nil {
		return fmt.Errorf("rollover args: %w", err)
	}
	_, err = w.job.Run(ctx, target)
	return err
}

// RetentionWorker runs the retention purge under river.
type RetentionWorker struct {
	river.WorkerDefaults[RetentionArgs]
	job *Retention
	loc *time.Location
	now func() time.Time
}

func NewRetentionWorker(job *Retention, loc *time.Location) *RetentionWorker {
	return &RetentionWorker{job: job, loc: loc, now: time.Now}
}

func (w *RetentionWorker) Work(ctx context.Context, j *river.Job[RetentionArgs]) error {
	target, err := targetFromArgs(j.Args.Month, j.Args.Year, RetentionTarget, w.now(), w.loc)
	if err != nil {
		return fmt.Errorf("retention args: %w", err)
	}
	_, err = w.job.Run(ctx, target)
	return err
}
