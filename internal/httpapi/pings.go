package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/domain/ping"
	"github.com/pulsewatch/pulsewatch/internal/repository/postgres"
)

const dedupeCookiePrefix = "pw_pinged_"

// handlePing is the public ingress: anything that can reach the URL can
// report a heartbeat. Automated callers are always recorded; an interactive
// browser revisiting the link is only recorded once per calendar day, so a
// person re-opening a bookmarked ping URL doesn't flood the log.
func (s *Server) handlePing(c *gin.Context) {
	key := c.Param("key")

	st := ping.Status(c.DefaultQuery("status", string(ping.StatusSuccess)))
	switch st {
	case ping.StatusSuccess, ping.StatusFailure, ping.StatusStart:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be success, failure or start"})
		return
	}

	now := s.clock()
	day := now.Format("2006-01-02")
	browser := isBrowser(c.Request)

	if browser {
		if v, err := c.Cookie(dedupeCookiePrefix + key); err == nil && v == day {
			c.String(http.StatusOK, "OK (already recorded today)")
			return
		}
	}

	_, _, err := s.rec.RecordByKey(c.Request.Context(), key, st, nil, now)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown ping key"})
			return
		}
		s.log.Error("record ping", zap.String("ping_key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ping failed"})
		return
	}

	if browser {
		c.SetCookie(dedupeCookiePrefix+key, day, 24*60*60, "/ping/"+key, "", false, true)
	}
	c.String(http.StatusOK, "OK")
}

// isBrowser is a boundary heuristic, not a security control: mainstream
// browsers all claim Mozilla ancestry, scripted callers rarely do.
func isBrowser(r *http.Request) bool {
	return strings.Contains(r.UserAgent(), "Mozilla")
}

func (s *Server) listPings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	if _, err := s.checks.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "check not found"})
			return
		}
		s.log.Error("get check", zap.Int64("check_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	list, err := s.pings.ListByCheck(c.Request.Context(), id, limit)
	if err != nil {
		s.log.Error("list pings", zap.Int64("check_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, list)
}
