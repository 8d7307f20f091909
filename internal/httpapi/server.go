// Package httpapi exposes the dashboard API and the public ping ingress.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/domain/integration"
	"github.com/pulsewatch/pulsewatch/internal/domain/ping"
	"github.com/pulsewatch/pulsewatch/internal/locks"
	"github.com/pulsewatch/pulsewatch/internal/services/recorder"
)

type Server struct {
	log          *zap.Logger
	checks       check.Repo
	pings        ping.Repo
	integrations integration.Repo
	rec          *recorder.Recorder
	locks        *locks.Keyed
	clock        func() time.Time
}

// NewServer wires the API handlers. lk must be the same Keyed instance the
// recorder and sweeper use, so check edits serialize against ping writes.
func NewServer(log *zap.Logger, checks check.Repo, pings ping.Repo, integrations integration.Repo, rec *recorder.Recorder, lk *locks.Keyed) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if lk == nil {
		lk = locks.NewKeyed()
	}
	return &Server{
		log:          log,
		checks:       checks,
		pings:        pings,
		integrations: integrations,
		rec:          rec,
		locks:        lk,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Tests only.
func (s *Server) WithClock(clock func() time.Time) *Server {
	s.clock = clock
	return s
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/ping/:key", s.handlePing)
	r.HEAD("/ping/:key", s.handlePing)
	r.POST("/ping/:key", s.handlePing)

	api := r.Group("/api/v1")
	{
		api.POST("/checks", s.createCheck)
		api.GET("/checks", s.listChecks)
		api.GET("/checks/:id", s.getCheck)
		api.PUT("/checks/:id", s.updateCheck)
		api.DELETE("/checks/:id", s.deleteCheck)

		api.GET("/checks/:id/pings", s.listPings)

		api.POST("/checks/:id/integrations", s.createIntegration)
		api.GET("/checks/:id/integrations", s.listIntegrations)
		api.DELETE("/integrations/:id", s.deleteIntegration)
	}

	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
