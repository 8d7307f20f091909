package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/domain/integration"
	"github.com/pulsewatch/pulsewatch/internal/repository/postgres"
)

type integrationBody struct {
	Type     string   `json:"type" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Target   string   `json:"target" binding:"required"`
	NotifyOn []string `json:"notify_on" binding:"required"`
	Enabled  *bool    `json:"enabled"`
}

func (s *Server) createIntegration(c *gin.Context) {
	checkID, ok := pathID(c)
	if !ok {
		return
	}
	var body integrationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	typ := integration.Type(body.Type)
	if !typ.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "type must be webhook or email"})
		return
	}
	notifyOn := make([]check.Status, 0, len(body.NotifyOn))
	for _, raw := range body.NotifyOn {
		st := check.Status(raw)
		// Only transitions into up/grace/down are notify-worthy.
		if !st.Valid() || st == check.StatusNew {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "notify_on entries must be up, grace or down"})
			return
		}
		notifyOn = append(notifyOn, st)
	}

	if _, err := s.checks.GetByID(c.Request.Context(), checkID); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "check not found"})
			return
		}
		s.log.Error("get check", zap.Int64("check_id", checkID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}
	in := &integration.Integration{
		CheckID:  checkID,
		Type:     typ,
		Name:     body.Name,
		Target:   body.Target,
		NotifyOn: notifyOn,
		Enabled:  enabled,
	}
	if err := s.integrations.Create(c.Request.Context(), in); err != nil {
		s.log.Error("create integration", zap.Int64("check_id", checkID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, in)
}

func (s *Server) listIntegrations(c *gin.Context) {
	checkID, ok := pathID(c)
	if !ok {
		return
	}
	list, err := s.integrations.ListByCheck(c.Request.Context(), checkID)
	if err != nil {
		s.log.Error("list integrations", zap.Int64("check_id", checkID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) deleteIntegration(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.integrations.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "integration not found"})
			return
		}
		s.log.Error("delete integration", zap.Int64("integration_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
