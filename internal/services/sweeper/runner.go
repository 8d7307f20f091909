// Package sweeper re-evaluates every check on a fixed interval and drives
// notifications on status transitions.
package sweeper

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/locks"
	"github.com/pulsewatch/pulsewatch/internal/status"
)

// Notifier receives transitions worth telling someone about. Calls are
// fire-and-forget from the loop's perspective.
type Notifier interface {
	Notify(ctx context.Context, chk *check.Check, s check.Status)
}

type Runner struct {
	log      *zap.Logger
	checks   check.Repo
	notifier Notifier
	locks    *locks.Keyed
	interval time.Duration
	clock    func() time.Time

	mSwept       prometheus.Counter
	mTransitions prometheus.Counter
	mErrors      prometheus.Counter
	mTickDur     prometheus.Histogram
}

func New(log *zap.Logger, checks check.Repo, notifier Notifier, lk *locks.Keyed, interval time.Duration, reg prometheus.Registerer) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if lk == nil {
		lk = locks.NewKeyed()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Runner{
		log:      log,
		checks:   checks,
		notifier: notifier,
		locks:    lk,
		interval: interval,
		clock:    func() time.Time { return time.Now().UTC() },
		mSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_checks_swept_total", Help: "Checks evaluated by the sweep loop",
		}),
		mTransitions: f.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_transitions_total", Help: "Status transitions persisted",
		}),
		mErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_errors_total", Help: "Per-check evaluation failures",
		}),
		mTickDur: f.NewHistogram(prometheus.HistogramOpts{
			Name: "sweeper_tick_duration_seconds", Help: "Sweep tick duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// WithClock overrides the time source. Tests only.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Run sweeps immediately and then on every interval tick until ctx is
// canceled. The ticker is released on return.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick evaluates every loaded check once. A failure on one check never
// aborts the sweep for the others.
func (r *Runner) Tick(ctx context.Context) {
	start := time.Now()
	tr := otel.Tracer("sweeper")
	ctx, span := tr.Start(ctx, "sweeper.tick")
	defer span.End()

	list, err := r.checks.List(ctx)
	if err != nil {
		span.RecordError(err)
		r.mErrors.Inc()
		r.log.Warn("list checks", zap.Error(err))
		return
	}
	span.SetAttributes(attribute.Int("sweep.checks", len(list)))

	now := r.clock()
	for _, c := range list {
		r.evaluate(ctx, c, now)
	}
	r.mTickDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) evaluate(ctx context.Context, c *check.Check, now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			r.mErrors.Inc()
			r.log.Error("check evaluation panicked; status left unchanged",
				zap.Int64("check_id", c.ID),
				zap.Any("panic", rec),
			)
		}
	}()
	r.mSwept.Inc()

	next, notify := r.transition(ctx, c, now)
	if !notify {
		return
	}
	// Dispatch happens after the lock is released: a slow webhook must not
	// hold up ping recording for this check.
	if r.notifier != nil {
		r.notifier.Notify(ctx, c, next)
	}
}

// transition recomputes and persists the check's status under its lock.
// It reports whether the resulting transition is notify-worthy.
func (r *Runner) transition(ctx context.Context, c *check.Check, now time.Time) (check.Status, bool) {
	unlock := r.locks.Lock(c.ID)
	defer unlock()

	next := status.Compute(c, now, r.log)
	if next == c.Status {
		return next, false
	}
	prev := c.Status

	if err := r.checks.UpdateStatus(ctx, c.ID, next); err != nil {
		r.mErrors.Inc()
		r.log.Warn("persist status transition",
			zap.Int64("check_id", c.ID),
			zap.String("to", string(next)),
			zap.Error(err),
		)
		return next, false
	}
	c.Status = next
	r.mTransitions.Inc()
	r.log.Info("status transition",
		zap.Int64("check_id", c.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)

	// A brand-new check's first ping is not a recovery; nobody gets told.
	if prev == check.StatusNew && next == check.StatusUp {
		return next, false
	}
	return next, true
}
