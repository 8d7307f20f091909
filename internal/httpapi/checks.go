package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/repository/postgres"
	"github.com/pulsewatch/pulsewatch/internal/schedule"
)

type httpConfigBody struct {
	URL        string `json:"url" binding:"required"`
	Method     string `json:"method"`
	TimeoutSec int    `json:"timeout_sec"`
}

type checkBody struct {
	Name           string          `json:"name" binding:"required"`
	Type           string          `json:"type"`
	PeriodMinutes  int             `json:"period_minutes"`
	CronExpression string          `json:"cron_expression"`
	GraceMinutes   int             `json:"grace_minutes" binding:"required"`
	HTTP           *httpConfigBody `json:"http"`
}

func (b *checkBody) validate() (check.Type, check.SchedulePolicy, string) {
	typ := check.Type(b.Type)
	if b.Type == "" {
		typ = check.TypeStandard
	}
	if typ != check.TypeStandard && typ != check.TypeHTTPRequest {
		return "", check.SchedulePolicy{}, "type must be standard or http_request"
	}
	if typ == check.TypeHTTPRequest && b.HTTP == nil {
		return "", check.SchedulePolicy{}, "http_request checks require an http config"
	}
	if b.GraceMinutes <= 0 {
		return "", check.SchedulePolicy{}, "grace_minutes must be positive"
	}
	if b.PeriodMinutes < 0 {
		return "", check.SchedulePolicy{}, "period_minutes must not be negative"
	}

	policy := check.SchedulePolicy{
		PeriodMinutes:  b.PeriodMinutes,
		CronExpression: b.CronExpression,
	}.Normalize()
	return typ, policy, ""
}

func (s *Server) createCheck(c *gin.Context) {
	var body checkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	typ, policy, msg := body.validate()
	if msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
		return
	}
	// An unparseable cron expression must never reach storage.
	if err := schedule.Validate(policy); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	chk := &check.Check{
		Name:         body.Name,
		PingKey:      uuid.NewString(),
		Type:         typ,
		GraceMinutes: body.GraceMinutes,
		Status:       check.StatusNew,
	}
	chk.SetPolicy(policy)
	if body.HTTP != nil {
		chk.HTTP = &check.HTTPConfig{
			URL:        body.HTTP.URL,
			Method:     body.HTTP.Method,
			TimeoutSec: body.HTTP.TimeoutSec,
		}
	}

	// Active checks get probed as soon as the prober sees them; passive
	// checks stay undated until their first ping.
	if typ == check.TypeHTTPRequest {
		now := s.clock()
		chk.NextDue = &now
	}

	if err := s.checks.Create(c.Request.Context(), chk); err != nil {
		s.log.Error("create check", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, chk)
}

func (s *Server) listChecks(c *gin.Context) {
	list, err := s.checks.List(c.Request.Context())
	if err != nil {
		s.log.Error("list checks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getCheck(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	chk, err := s.checks.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "check not found"})
			return
		}
		s.log.Error("get check", zap.Int64("check_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, chk)
}

func (s *Server) updateCheck(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body checkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	typ, policy, msg := body.validate()
	if msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
		return
	}
	if err := schedule.Validate(policy); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	// Update rewrites the heartbeat columns from the snapshot read below, so
	// the whole read-modify-write holds the check's lock: a ping landing
	// mid-edit must not be erased by the stale snapshot.
	unlock := s.locks.Lock(id)
	defer unlock()

	chk, err := s.checks.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "check not found"})
			return
		}
		s.log.Error("get check", zap.Int64("check_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	scheduleChanged := policy != chk.Policy()

	chk.Name = body.Name
	chk.Type = typ
	chk.GraceMinutes = body.GraceMinutes
	chk.SetPolicy(policy)
	chk.HTTP = nil
	if body.HTTP != nil {
		chk.HTTP = &check.HTTPConfig{
			URL:        body.HTTP.URL,
			Method:     body.HTTP.Method,
			TimeoutSec: body.HTTP.TimeoutSec,
		}
	}

	// Schedule edits invalidate the cached due time: recompute anchored at
	// the last ping, or at now for an active check that has never pinged.
	if scheduleChanged {
		chk.NextDue = nil
		anchor := s.clock()
		if chk.LastPing != nil {
			anchor = *chk.LastPing
		} else if typ != check.TypeHTTPRequest {
			anchor = time.Time{}
		}
		if !anchor.IsZero() {
			if nd, err := schedule.NextDue(policy, anchor); err == nil && !nd.IsZero() {
				chk.NextDue = &nd
			}
		}
	}

	if err := s.checks.Update(c.Request.Context(), chk); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "check not found"})
			return
		}
		s.log.Error("update check", zap.Int64("check_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, chk)
}

func (s *Server) deleteCheck(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.checks.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "check not found"})
			return
		}
		s.log.Error("delete check", zap.Int64("check_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
