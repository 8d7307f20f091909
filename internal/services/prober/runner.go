package prober

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/domain/ping"
	"github.com/pulsewatch/pulsewatch/internal/services/recorder"
)

type Runner struct {
	log      *zap.Logger
	checks   check.Repo
	rec      *recorder.Recorder
	prober   *Prober
	interval time.Duration
	batch    int
	clock    func() time.Time

	mProbes  prometheus.Counter
	mUp      prometheus.Counter
	mDown    prometheus.Counter
	mErrors  prometheus.Counter
	mLatency prometheus.Histogram
}

func NewRunner(log *zap.Logger, checks check.Repo, rec *recorder.Recorder, p *Prober, interval time.Duration, batch int, reg prometheus.Registerer) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Runner{
		log:      log,
		checks:   checks,
		rec:      rec,
		prober:   p,
		interval: interval,
		batch:    batch,
		clock:    func() time.Time { return time.Now().UTC() },
		mProbes: f.NewCounter(prometheus.CounterOpts{
			Name: "prober_probes_total", Help: "HTTP probes attempted",
		}),
		mUp: f.NewCounter(prometheus.CounterOpts{
			Name: "prober_success_total", Help: "Successful probe outcomes",
		}),
		mDown: f.NewCounter(prometheus.CounterOpts{
			Name: "prober_failure_total", Help: "Failed or timed out probe outcomes",
		}),
		mErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "prober_errors_total", Help: "Errors in the probe loop",
		}),
		mLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name: "prober_latency_seconds", Help: "Probe latency",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// WithClock overrides the time source. Tests only.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	now := r.clock()
	due, err := r.checks.FetchDueProbes(ctx, now, r.batch)
	if err != nil {
		r.mErrors.Inc()
		r.log.Warn("fetch due probes", zap.Error(err))
		return
	}

	for _, c := range due {
		if c.HTTP == nil {
			r.mErrors.Inc()
			r.log.Warn("http_request check without http config", zap.Int64("check_id", c.ID))
			continue
		}
		r.mProbes.Inc()
		out := r.prober.Probe(ctx, *c.HTTP)
		r.mLatency.Observe(out.Latency.Seconds())
		if out.Status == ping.StatusSuccess {
			r.mUp.Inc()
		} else {
			r.mDown.Inc()
		}

		meta := &recorder.Meta{
			HTTPCode: out.Code,
			Method:   c.HTTP.Method,
			URL:      c.HTTP.URL,
		}
		if _, err := r.rec.Record(ctx, c.ID, out.Status, meta, r.clock()); err != nil {
			r.mErrors.Inc()
			r.log.Warn("record probe outcome", zap.Int64("check_id", c.ID), zap.Error(err))
			continue
		}
		r.log.Debug("probe recorded",
			zap.Int64("check_id", c.ID),
			zap.String("outcome", string(out.Status)),
			zap.Int("code", out.Code),
			zap.Duration("latency", out.Latency),
		)
	}
}
