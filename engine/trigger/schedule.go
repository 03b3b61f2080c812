package trigger

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule evaluates a SCHEDULED trigger's config.cron field, letting the
// input scheduler decide whether a new Execution is due without running a
// separate scheduler process.
type Schedule struct {
	expr cron.Schedule
}

var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewSchedule parses a SCHEDULED trigger's cron expression.
func NewSchedule(t *Trigger) (*Schedule, error) {
	if t.Type != TypeScheduled {
		return nil, fmt.Errorf("trigger %s is not type SCHEDULED", t.ID)
	}
	raw, ok := t.Config["cron"]
	if !ok {
		return nil, fmt.Errorf("trigger %s has no config.cron", t.ID)
	}
	expr, ok := raw.(string)
	if !ok || expr == "" {
		return nil, fmt.Errorf("trigger %s config.cron must be a non-empty string", t.ID)
	}
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return &Schedule{expr: schedule}, nil
}

// NextRun returns the first fire time strictly after from.
func (s *Schedule) NextRun(from time.Time) time.Time {
	return s.expr.Next(from)
}

// ShouldFireAt reports whether a run scheduled for `due` is still due as of
// `now`, i.e. `due` has arrived and is not more than grace old.
func (s *Schedule) ShouldFireAt(now, due time.Time, grace time.Duration) bool {
	if now.Before(due) {
		return false
	}
	return now.Sub(due) <= grace
}
