// Package status derives a check's current state from its last ping, its
// schedule and the clock.
package status

import (
	"time"

	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/schedule"
)

// Compute returns the status of c at the given instant.
//
//	no ping yet                    -> new
//	now <  next due                -> up
//	now <  next due + grace        -> grace
//	otherwise                      -> down
//
// If the cached next-due field is missing it is derived on the fly, anchored
// at the last ping. A cron expression that fails to parse here fails open:
// the check reports up and a warning is logged, so a parser edge case never
// flaps a healthy check to down mid-sweep.
func Compute(c *check.Check, now time.Time, log *zap.Logger) check.Status {
	if log == nil {
		log = zap.NewNop()
	}
	if c.LastPing == nil {
		return check.StatusNew
	}

	var due time.Time
	if c.NextDue != nil {
		due = *c.NextDue
	} else {
		d, err := schedule.NextDue(c.Policy(), *c.LastPing)
		if err != nil {
			log.Warn("next-due computation failed, failing open",
				zap.Int64("check_id", c.ID),
				zap.String("cron", c.CronExpression),
				zap.Error(err),
			)
			return check.StatusUp
		}
		due = d
	}

	if due.IsZero() {
		// No period and no cron: the check can never become late.
		log.Warn("check has no schedule, treating as never due", zap.Int64("check_id", c.ID))
		return check.StatusUp
	}

	if now.Before(due) {
		return check.StatusUp
	}
	if now.Before(due.Add(c.Grace())) {
		return check.StatusGrace
	}
	return check.StatusDown
}
