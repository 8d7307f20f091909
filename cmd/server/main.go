package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/config"
	"github.com/pulsewatch/pulsewatch/internal/httpapi"
	"github.com/pulsewatch/pulsewatch/internal/locks"
	"github.com/pulsewatch/pulsewatch/internal/obs"
	pg "github.com/pulsewatch/pulsewatch/internal/repository/postgres"
	"github.com/pulsewatch/pulsewatch/internal/services/notifier"
	"github.com/pulsewatch/pulsewatch/internal/services/prober"
	"github.com/pulsewatch/pulsewatch/internal/services/recorder"
	"github.com/pulsewatch/pulsewatch/internal/services/sweeper"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.Level, cfg.Log.Pretty, "pulsewatch", version)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting pulsewatch",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.Duration("sweep_interval", cfg.Sweep.Interval),
	)

	otelCloser, err := obs.SetupOTel(ctx, obs.OTELConfig{
		Enable:      cfg.OTEL.Enable,
		Endpoint:    cfg.OTEL.OTLPEndpoint,
		ServiceName: cfg.OTEL.ServiceName,
		SampleRatio: cfg.OTEL.SampleRatio,
	})
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	// wiring
	checkRepo := pg.NewCheckRepo(db)
	pingRepo := pg.NewPingRepo(db)
	integrationRepo := pg.NewIntegrationRepo(db)
	lk := locks.NewKeyed()

	rec := recorder.New(checkRepo, pingRepo, lk, l)

	var mailer notifier.Mailer
	if cfg.SMTP.Addr != "" {
		mailer = notifier.NewSMTPMailer(cfg.SMTP, l)
	}
	dispatcher := notifier.New(l, integrationRepo, mailer, cfg.Webhook.Timeout, cfg.HTTP.PublicURL, nil)

	sweep := sweeper.New(l, checkRepo, dispatcher, lk, cfg.Sweep.Interval, nil)

	pr := prober.NewProber(cfg.Probe.Timeout, cfg.Probe.UserAgent)
	probeRunner := prober.NewRunner(l, checkRepo, rec, pr, cfg.Probe.Interval, cfg.Probe.BatchLimit, nil)

	api := httpapi.NewServer(l, checkRepo, pingRepo, integrationRepo, rec, lk)
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// run
	errCh := make(chan error, 3)
	go func() { errCh <- sweep.Run(ctx) }()
	go func() { errCh <- probeRunner.Run(ctx) }()
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	l.Info("pulsewatch started")

	select {
	case <-ctx.Done():
		l.Info("shutdown signal")
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
