package check

import "time"

// Status is derived from the ping history and schedule; it is cached on the
// row for query convenience but the status calculator is the source of truth.
type Status string

const (
	StatusNew   Status = "new"
	StatusUp    Status = "up"
	StatusGrace Status = "grace"
	StatusDown  Status = "down"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusUp, StatusGrace, StatusDown:
		return true
	}
	return false
}

type Type string

const (
	// TypeStandard checks wait passively for external pings.
	TypeStandard Type = "standard"
	// TypeHTTPRequest checks are probed actively on their schedule.
	TypeHTTPRequest Type = "http_request"
)

// SchedulePolicy is either a fixed period in minutes or a 5-field cron
// expression. The two are mutually exclusive: a non-empty cron expression
// forces the period to zero.
type SchedulePolicy struct {
	PeriodMinutes  int    `json:"period_minutes"`
	CronExpression string `json:"cron_expression"`
}

// Normalize enforces mutual exclusivity, preferring the cron expression.
func (p SchedulePolicy) Normalize() SchedulePolicy {
	if p.CronExpression != "" {
		p.PeriodMinutes = 0
	}
	return p
}

// HTTPConfig describes the probe request for http_request checks.
type HTTPConfig struct {
	URL        string `json:"url"`
	Method     string `json:"method"`
	TimeoutSec int    `json:"timeout_sec"`
}

type Check struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	PingKey        string      `json:"ping_key"`
	Type           Type        `json:"type"`
	PeriodMinutes  int         `json:"period_minutes"`
	CronExpression string      `json:"cron_expression"`
	GraceMinutes   int         `json:"grace_minutes"`
	LastPing       *time.Time  `json:"last_ping"`
	NextDue        *time.Time  `json:"next_due"`
	Status         Status      `json:"status"`
	HTTP           *HTTPConfig `json:"http,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (c *Check) Policy() SchedulePolicy {
	return SchedulePolicy{PeriodMinutes: c.PeriodMinutes, CronExpression: c.CronExpression}
}

func (c *Check) SetPolicy(p SchedulePolicy) {
	p = p.Normalize()
	c.PeriodMinutes = p.PeriodMinutes
	c.CronExpression = p.CronExpression
}

// Grace returns the tolerance window after the due time elapses before the
// check is declared down.
func (c *Check) Grace() time.Duration {
	return time.Duration(c.GraceMinutes) * time.Minute
}
