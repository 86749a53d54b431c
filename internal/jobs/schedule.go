package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Cron anchors for the two period-boundary batches: rollover closes the old
// month early on the first, retention purges two hours later so it never
// outruns the rollover for the same boundary.
const (
	RolloverCronSpec  = "0 2 1 * *"
	RetentionCronSpec = "0 4 1 * *"
)

// ParseSchedule parses a standard 5-field cron spec anchored to tz. The
// returned cron.Schedule satisfies river's PeriodicSchedule, so it can drive
// a periodic job directly.
func ParseSchedule(spec, tz string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(fmt.Sprintf("CRON_TZ=%s %s", tz, spec))
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return s, nil
}
