// Package notifier fans status transitions out to the integrations
// configured on a check. Delivery is best-effort and at-most-once: failures
// are logged and never retried, and nothing here ever propagates an error
// back into the sweep loop.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/domain/integration"
	"github.com/pulsewatch/pulsewatch/internal/obs"
)

// Mailer is the handoff point for email integrations; the dispatcher renders
// the payload and hands it over without caring how delivery happens.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Dispatcher struct {
	log          *zap.Logger
	integrations integration.Repo
	httpc        *http.Client
	mailer       Mailer
	publicURL    string

	mWebhooks prometheus.Counter
	mEmails   prometheus.Counter
	mErrors   prometheus.Counter
}

func New(log *zap.Logger, integrations integration.Repo, mailer Mailer, webhookTimeout time.Duration, publicURL string, reg prometheus.Registerer) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if webhookTimeout <= 0 {
		webhookTimeout = 10 * time.Second
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Dispatcher{
		log:          log,
		integrations: integrations,
		httpc: &http.Client{
			Timeout:   webhookTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		mailer:    mailer,
		publicURL: strings.TrimRight(publicURL, "/"),
		mWebhooks: f.NewCounter(prometheus.CounterOpts{
			Name: "notifier_webhooks_sent_total", Help: "Webhook POSTs attempted",
		}),
		mEmails: f.NewCounter(prometheus.CounterOpts{
			Name: "notifier_emails_sent_total", Help: "Emails handed to the mailer",
		}),
		mErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "notifier_errors_total", Help: "Delivery failures (logged only)",
		}),
	}
}

type webhookPayload struct {
	Check struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
		URL    string `json:"url"`
	} `json:"check"`
	Integration struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"integration"`
	Timestamp time.Time `json:"timestamp"`
}

// Notify loads the enabled integrations subscribed to s and fires each one.
// It never returns an error and never panics outward.
func (d *Dispatcher) Notify(ctx context.Context, chk *check.Check, s check.Status) {
	defer func() {
		if rec := recover(); rec != nil {
			d.mErrors.Inc()
			d.log.Error("notify panicked", zap.Int64("check_id", chk.ID), zap.Any("panic", rec))
		}
	}()
	log := d.log.With(obs.TraceFields(ctx)...)

	rules, err := d.integrations.ListEnabledForCheck(ctx, chk.ID)
	if err != nil {
		d.mErrors.Inc()
		log.Warn("load integrations", zap.Int64("check_id", chk.ID), zap.Error(err))
		return
	}

	for _, rule := range rules {
		if !rule.WantsStatus(s) {
			continue
		}
		switch rule.Type {
		case integration.TypeWebhook:
			d.sendWebhook(ctx, chk, rule, s)
		case integration.TypeEmail:
			d.sendEmail(ctx, chk, rule, s)
		default:
			log.Warn("unknown integration type",
				zap.Int64("integration_id", rule.ID),
				zap.String("type", string(rule.Type)),
			)
		}
	}
}

func (d *Dispatcher) sendWebhook(ctx context.Context, chk *check.Check, rule *integration.Integration, s check.Status) {
	var pl webhookPayload
	pl.Check.ID = chk.ID
	pl.Check.Name = chk.Name
	pl.Check.Status = string(s)
	pl.Check.URL = d.checkURL(chk)
	pl.Integration.ID = rule.ID
	pl.Integration.Name = rule.Name
	pl.Integration.Type = string(rule.Type)
	pl.Timestamp = time.Now().UTC()

	body, err := json.Marshal(pl)
	if err != nil {
		d.mErrors.Inc()
		d.log.Warn("marshal webhook payload", zap.Int64("integration_id", rule.ID), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rule.Target, bytes.NewReader(body))
	if err != nil {
		d.mErrors.Inc()
		d.log.Warn("build webhook request", zap.Int64("integration_id", rule.ID), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	d.mWebhooks.Inc()
	resp, err := d.httpc.Do(req)
	if err != nil {
		d.mErrors.Inc()
		d.log.Warn("webhook delivery failed",
			zap.Int64("integration_id", rule.ID),
			zap.String("target", rule.Target),
			zap.Error(err),
		)
		return
	}
	// Blind POST: the response is drained and discarded, no validation.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	d.log.Debug("webhook delivered",
		zap.Int64("integration_id", rule.ID),
		zap.Int("code", resp.StatusCode),
	)
}

func (d *Dispatcher) sendEmail(ctx context.Context, chk *check.Check, rule *integration.Integration, s check.Status) {
	subject := fmt.Sprintf("Check %q is %s", chk.Name, s)
	body := fmt.Sprintf(
		"Check %q changed status to %s at %s.\n\n%s\n",
		chk.Name, s, time.Now().UTC().Format(time.RFC3339), d.checkURL(chk),
	)

	if d.mailer == nil {
		d.log.Info("email integration configured but no mailer; skipping",
			zap.Int64("integration_id", rule.ID),
			zap.String("to", rule.Target),
		)
		return
	}

	d.mEmails.Inc()
	if err := d.mailer.Send(ctx, rule.Target, subject, body); err != nil {
		d.mErrors.Inc()
		d.log.Warn("email delivery failed",
			zap.Int64("integration_id", rule.ID),
			zap.String("to", rule.Target),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) checkURL(chk *check.Check) string {
	if chk.Type == check.TypeHTTPRequest && chk.HTTP != nil {
		return chk.HTTP.URL
	}
	return d.publicURL + "/ping/" + chk.PingKey
}
