// Package prober runs the active side of monitoring: http_request checks are
// polled on their schedule and the outcome is recorded as a regular ping.
package prober

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/domain/ping"
)

type Outcome struct {
	Status  ping.Status
	Code    int
	Latency time.Duration
}

type Prober struct {
	httpc     *http.Client
	userAgent string
	timeout   time.Duration
}

func NewProber(timeout time.Duration, userAgent string) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		httpc:     &http.Client{Timeout: timeout},
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Probe executes the configured request and classifies the result. Transport
// errors are a failure, deadline expiry is a timeout, and 2xx/3xx is success.
func (p *Prober) Probe(ctx context.Context, cfg check.HTTPConfig) Outcome {
	timeout := p.timeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, normalizeURL(cfg.URL), nil)
	if err != nil {
		return Outcome{Status: ping.StatusFailure, Latency: time.Since(start)}
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpc.Do(req)
	lat := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return Outcome{Status: ping.StatusTimeout, Latency: lat}
		}
		return Outcome{Status: ping.StatusFailure, Latency: lat}
	}
	defer resp.Body.Close()

	st := ping.StatusFailure
	if resp.StatusCode >= 200 && resp.StatusCode <= 399 {
		st = ping.StatusSuccess
	}
	return Outcome{Status: st, Code: resp.StatusCode, Latency: lat}
}

func normalizeURL(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return t
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		return t
	}
	return "http://" + t
}
