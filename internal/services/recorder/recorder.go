// Package recorder appends ping events and keeps the owning check's
// heartbeat fields in sync.
package recorder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/domain/ping"
	"github.com/pulsewatch/pulsewatch/internal/locks"
	"github.com/pulsewatch/pulsewatch/internal/schedule"
)

// Meta carries optional HTTP metadata for pings produced by active probes.
type Meta struct {
	HTTPCode int
	Method   string
	URL      string
}

type Recorder struct {
	checks check.Repo
	pings  ping.Repo
	locks  *locks.Keyed
	log    *zap.Logger
}

func New(checks check.Repo, pings ping.Repo, lk *locks.Keyed, log *zap.Logger) *Recorder {
	if lk == nil {
		lk = locks.NewKeyed()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{checks: checks, pings: pings, locks: lk, log: log}
}

// Record appends a ping for the check and resets its heartbeat: last ping is
// set to now, the next due time is recomputed anchored at now, and the check
// goes back to up.
//
// The status reset applies regardless of the ping's own status value: a
// failure or timeout ping still marks the check up. Any contact counts as
// alive; only schedule silence moves a check toward down. See DESIGN.md
// before changing this.
func (r *Recorder) Record(ctx context.Context, checkID int64, st ping.Status, meta *Meta, now time.Time) (*ping.Ping, error) {
	unlock := r.locks.Lock(checkID)
	defer unlock()

	chk, err := r.checks.GetByID(ctx, checkID)
	if err != nil {
		return nil, fmt.Errorf("get check: %w", err)
	}
	return r.record(ctx, chk, st, meta, now)
}

// RecordByKey is the public-ingress entry point: the caller only knows the
// opaque ping key.
func (r *Recorder) RecordByKey(ctx context.Context, key string, st ping.Status, meta *Meta, now time.Time) (*check.Check, *ping.Ping, error) {
	chk, err := r.checks.GetByPingKey(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("get check by key: %w", err)
	}

	unlock := r.locks.Lock(chk.ID)
	defer unlock()

	p, err := r.record(ctx, chk, st, meta, now)
	if err != nil {
		return nil, nil, err
	}
	return chk, p, nil
}

func (r *Recorder) record(ctx context.Context, chk *check.Check, st ping.Status, meta *Meta, now time.Time) (*ping.Ping, error) {
	p := &ping.Ping{
		CheckID:   chk.ID,
		Timestamp: now,
		Status:    st,
	}
	if meta != nil {
		p.HTTPCode = meta.HTTPCode
		p.Method = meta.Method
		p.URL = meta.URL
	}
	if err := r.pings.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("insert ping: %w", err)
	}

	var nextDue *time.Time
	nd, err := schedule.NextDue(chk.Policy(), now)
	switch {
	case err != nil:
		// Schedule was validated at create/update time; if it rots in
		// storage we fail open and let the status calculator report up.
		r.log.Warn("next-due recompute failed on ping",
			zap.Int64("check_id", chk.ID),
			zap.String("cron", chk.CronExpression),
			zap.Error(err),
		)
	case !nd.IsZero():
		nextDue = &nd
	}

	if err := r.checks.RecordHeartbeat(ctx, chk.ID, now, nextDue, check.StatusUp); err != nil {
		return nil, fmt.Errorf("record heartbeat: %w", err)
	}

	chk.LastPing = &now
	chk.NextDue = nextDue
	chk.Status = check.StatusUp

	r.log.Debug("ping recorded",
		zap.Int64("check_id", chk.ID),
		zap.String("ping_status", string(st)),
	)
	return p, nil
}
