package httpapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/domain/integration"
)

func TestCreateIntegration(t *testing.T) {
	e := newTestEnv(seedCheck(1, "key-1"))

	w := e.do(t, http.MethodPost, "/api/v1/checks/1/integrations", map[string]any{
		"type":      "webhook",
		"name":      "ops hook",
		"target":    "https://hooks.example.com/abc",
		"notify_on": []string{"grace", "down"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	got := decode[integration.Integration](t, w)
	require.NotZero(t, got.ID)
	require.Equal(t, int64(1), got.CheckID)
	require.Equal(t, integration.TypeWebhook, got.Type)
	require.True(t, got.Enabled)
	require.Equal(t, []check.Status{check.StatusGrace, check.StatusDown}, got.NotifyOn)
}

func TestCreateIntegration_DisabledExplicitly(t *testing.T) {
	e := newTestEnv(seedCheck(1, "key-1"))

	w := e.do(t, http.MethodPost, "/api/v1/checks/1/integrations", map[string]any{
		"type":      "email",
		"name":      "oncall",
		"target":    "oncall@example.com",
		"notify_on": []string{"down"},
		"enabled":   false,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.False(t, decode[integration.Integration](t, w).Enabled)
}

func TestCreateIntegration_Validation(t *testing.T) {
	e := newTestEnv(seedCheck(1, "key-1"))

	cases := []struct {
		name string
		body map[string]any
		code int
	}{
		{"missing target", map[string]any{"type": "webhook", "name": "x", "notify_on": []string{"down"}}, http.StatusBadRequest},
		{"bad type", map[string]any{"type": "sms", "name": "x", "target": "t", "notify_on": []string{"down"}}, http.StatusUnprocessableEntity},
		{"bad status", map[string]any{"type": "webhook", "name": "x", "target": "t", "notify_on": []string{"exploded"}}, http.StatusUnprocessableEntity},
		{"new not allowed", map[string]any{"type": "webhook", "name": "x", "target": "t", "notify_on": []string{"new"}}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/v1/checks/1/integrations", tc.body, nil)
			require.Equal(t, tc.code, w.Code)
		})
	}
}

func TestCreateIntegration_UnknownCheck(t *testing.T) {
	e := newTestEnv()
	w := e.do(t, http.MethodPost, "/api/v1/checks/9/integrations", map[string]any{
		"type": "webhook", "name": "x", "target": "t", "notify_on": []string{"down"},
	}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListIntegrations(t *testing.T) {
	e := newTestEnv(seedCheck(1, "key-1"))
	for _, tgt := range []string{"https://a.example.com", "https://b.example.com"} {
		w := e.do(t, http.MethodPost, "/api/v1/checks/1/integrations", map[string]any{
			"type": "webhook", "name": "h", "target": tgt, "notify_on": []string{"down"},
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := e.do(t, http.MethodGet, "/api/v1/checks/1/integrations", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]integration.Integration](t, w), 2)
}

func TestDeleteIntegration(t *testing.T) {
	e := newTestEnv(seedCheck(1, "key-1"))
	w := e.do(t, http.MethodPost, "/api/v1/checks/1/integrations", map[string]any{
		"type": "webhook", "name": "h", "target": "https://a.example.com", "notify_on": []string{"down"},
	}, nil)
	id := decode[integration.Integration](t, w).ID
	path := fmt.Sprintf("/api/v1/integrations/%d", id)

	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, path, nil, nil).Code)
	require.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, path, nil, nil).Code)
}
