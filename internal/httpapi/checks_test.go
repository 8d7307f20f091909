package httpapi

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
	"github.com/pulsewatch/pulsewatch/internal/domain/ping"
)

func TestCreateCheck_Standard(t *testing.T) {
	e := newTestEnv()

	w := e.do(t, http.MethodPost, "/api/v1/checks", map[string]any{
		"name":           "nightly backups",
		"period_minutes": 1440,
		"grace_minutes":  60,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	got := decode[check.Check](t, w)
	require.Equal(t, "nightly backups", got.Name)
	require.Equal(t, check.TypeStandard, got.Type)
	require.Equal(t, check.StatusNew, got.Status)
	require.NotEmpty(t, got.PingKey)
	require.Nil(t, got.LastPing)
	// Passive checks stay undated until their first ping.
	require.Nil(t, got.NextDue)
}

func TestCreateCheck_CronNormalizesPeriod(t *testing.T) {
	e := newTestEnv()

	w := e.do(t, http.MethodPost, "/api/v1/checks", map[string]any{
		"name":            "weekly report",
		"period_minutes":  30,
		"cron_expression": "0 9 * * 1",
		"grace_minutes":   120,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	got := decode[check.Check](t, w)
	require.Equal(t, "0 9 * * 1", got.CronExpression)
	require.Zero(t, got.PeriodMinutes)
}

func TestCreateCheck_HTTPRequestGetsImmediateDue(t *testing.T) {
	e := newTestEnv()

	w := e.do(t, http.MethodPost, "/api/v1/checks", map[string]any{
		"name":           "api health",
		"type":           "http_request",
		"period_minutes": 5,
		"grace_minutes":  2,
		"http":           map[string]any{"url": "https://api.example.com/health"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	got := decode[check.Check](t, w)
	require.Equal(t, check.TypeHTTPRequest, got.Type)
	require.NotNil(t, got.NextDue)
	require.Equal(t, e.now, got.NextDue.UTC())
}

func TestCreateCheck_Validation(t *testing.T) {
	e := newTestEnv()

	cases := []struct {
		name string
		body map[string]any
		code int
	}{
		{"missing name", map[string]any{"grace_minutes": 5}, http.StatusBadRequest},
		{"missing grace", map[string]any{"name": "x", "period_minutes": 5}, http.StatusBadRequest},
		{"bad type", map[string]any{"name": "x", "grace_minutes": 5, "type": "carrier_pigeon"}, http.StatusUnprocessableEntity},
		{"http without config", map[string]any{"name": "x", "grace_minutes": 5, "type": "http_request"}, http.StatusUnprocessableEntity},
		{"negative period", map[string]any{"name": "x", "grace_minutes": 5, "period_minutes": -1}, http.StatusUnprocessableEntity},
		{"bad cron", map[string]any{"name": "x", "grace_minutes": 5, "cron_expression": "nope"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/v1/checks", tc.body, nil)
			require.Equal(t, tc.code, w.Code)
		})
	}
}

func TestGetCheck(t *testing.T) {
	e := newTestEnv(&check.Check{ID: 7, Name: "c", PingKey: "k", PeriodMinutes: 5, GraceMinutes: 1, Status: check.StatusUp})

	w := e.do(t, http.MethodGet, "/api/v1/checks/7", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(7), decode[check.Check](t, w).ID)

	require.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/v1/checks/99", nil, nil).Code)
	require.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/v1/checks/zero", nil, nil).Code)
}

func TestListChecks(t *testing.T) {
	e := newTestEnv(
		&check.Check{ID: 1, Name: "a", PingKey: "k1", PeriodMinutes: 5, GraceMinutes: 1, Status: check.StatusUp},
		&check.Check{ID: 2, Name: "b", PingKey: "k2", PeriodMinutes: 5, GraceMinutes: 1, Status: check.StatusDown},
	)

	w := e.do(t, http.MethodGet, "/api/v1/checks", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]check.Check](t, w), 2)
}

func TestUpdateCheck_ScheduleChangeRecomputesDue(t *testing.T) {
	last := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	due := last.Add(10 * time.Minute)
	e := newTestEnv(&check.Check{
		ID: 1, Name: "c", PingKey: "k", PeriodMinutes: 10, GraceMinutes: 5,
		LastPing: &last, NextDue: &due, Status: check.StatusUp,
	})

	w := e.do(t, http.MethodPut, "/api/v1/checks/1", map[string]any{
		"name":           "c",
		"period_minutes": 60,
		"grace_minutes":  5,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[check.Check](t, w)
	require.Equal(t, 60, got.PeriodMinutes)
	// Anchored at the last ping, not at the edit time.
	require.NotNil(t, got.NextDue)
	require.Equal(t, last.Add(time.Hour), got.NextDue.UTC())
}

func TestUpdateCheck_UnchangedScheduleKeepsDue(t *testing.T) {
	last := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	due := last.Add(10 * time.Minute)
	e := newTestEnv(&check.Check{
		ID: 1, Name: "old name", PingKey: "k", PeriodMinutes: 10, GraceMinutes: 5,
		LastPing: &last, NextDue: &due, Status: check.StatusUp,
	})

	w := e.do(t, http.MethodPut, "/api/v1/checks/1", map[string]any{
		"name":           "new name",
		"period_minutes": 10,
		"grace_minutes":  30,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[check.Check](t, w)
	require.Equal(t, "new name", got.Name)
	require.Equal(t, 30, got.GraceMinutes)
	require.NotNil(t, got.NextDue)
	require.Equal(t, due, got.NextDue.UTC())
}

func TestUpdateCheck_ConcurrentPingSurvives(t *testing.T) {
	e := newTestEnv(&check.Check{
		ID: 1, Name: "c", PingKey: "k", PeriodMinutes: 10, GraceMinutes: 5,
		Status: check.StatusNew,
	})

	// A heartbeat arrives while the edit is in flight. The edit holds the
	// check's lock across its read-modify-write, so the recorder parks until
	// the update lands and the ping is applied on top of it, never under it.
	recorded := make(chan error, 1)
	var once sync.Once
	e.checks.onGetByID = func(id int64) {
		once.Do(func() {
			go func() {
				_, err := e.rec.Record(context.Background(), id, ping.StatusSuccess, nil, e.now)
				recorded <- err
			}()
			time.Sleep(50 * time.Millisecond)
		})
	}

	w := e.do(t, http.MethodPut, "/api/v1/checks/1", map[string]any{
		"name":           "c",
		"period_minutes": 60,
		"grace_minutes":  5,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, <-recorded)

	got, err := e.checks.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got.LastPing)
	require.Equal(t, e.now, *got.LastPing)
	require.Equal(t, check.StatusUp, got.Status)
	require.NotNil(t, got.NextDue)
	require.Equal(t, e.now.Add(time.Hour), *got.NextDue)
	require.Len(t, e.pings.pings, 1)
}

func TestUpdateCheck_NotFound(t *testing.T) {
	e := newTestEnv()
	w := e.do(t, http.MethodPut, "/api/v1/checks/5", map[string]any{
		"name": "x", "period_minutes": 5, "grace_minutes": 1,
	}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCheck(t *testing.T) {
	e := newTestEnv(&check.Check{ID: 1, Name: "c", PingKey: "k", PeriodMinutes: 5, GraceMinutes: 1})

	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/v1/checks/1", nil, nil).Code)
	require.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/v1/checks/1", nil, nil).Code)
}
