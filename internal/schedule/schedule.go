// Package schedule computes when a check's next ping is due. It is pure time
// math: the caller always supplies the anchor, never an implicit "now".
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
)

// ErrInvalidSchedule marks a cron expression that cannot be parsed. Callers
// creating or editing a check must reject the schedule rather than persist it.
var ErrInvalidSchedule = errors.New("invalid cron expression")

// NextDue returns the next due timestamp strictly after from.
//
// A zero return with nil error means the policy never fires (no period, no
// cron): a degenerate manual check that is never flagged late.
func NextDue(p check.SchedulePolicy, from time.Time) (time.Time, error) {
	if expr := strings.TrimSpace(p.CronExpression); expr != "" {
		sched, err := cron.ParseStandard(expr)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, expr, err)
		}
		return sched.Next(from), nil
	}
	if p.PeriodMinutes > 0 {
		return from.Add(time.Duration(p.PeriodMinutes) * time.Minute), nil
	}
	return time.Time{}, nil
}

// Validate rejects policies whose cron expression does not parse. A policy
// with neither period nor cron is accepted: it is degenerate but legal.
func Validate(p check.SchedulePolicy) error {
	if strings.TrimSpace(p.CronExpression) == "" {
		return nil
	}
	if _, err := cron.ParseStandard(strings.TrimSpace(p.CronExpression)); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, p.CronExpression, err)
	}
	return nil
}
