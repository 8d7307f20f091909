//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"
)

type checkResp struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	PingKey string `json:"ping_key"`
	Status  string `json:"status"`
}

type pingResp struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type integrationResp struct {
	ID      int64 `json:"id"`
	Enabled bool  `json:"enabled"`
}

func TestCheckLifecycle(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HealthURL, 60*time.Second)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	name := fmt.Sprintf("it-backups-%d", RandSuffix())
	body := []byte(fmt.Sprintf(`{"name":%q,"period_minutes":60,"grace_minutes":10}`, name))
	raw := HTTPDoJSON(t, http.MethodPost, cfg.BaseURL+"/api/v1/checks", body, http.StatusCreated)

	var chk checkResp
	if err := json.Unmarshal(raw, &chk); err != nil {
		t.Fatalf("decode check: %v", err)
	}
	defer DeleteCheckRow(t, db, chk.ID)

	if chk.Status != "new" || chk.PingKey == "" {
		t.Fatalf("unexpected created check: %+v", chk)
	}

	// First heartbeat flips the check to up.
	HTTPDoJSON(t, http.MethodGet, cfg.BaseURL+"/ping/"+url.PathEscape(chk.PingKey), nil, http.StatusOK)
	if got := GetCheckStatus(t, db, chk.ID); got != "up" {
		t.Fatalf("status after ping: got %q want up", got)
	}
	if n := CountPings(t, db, chk.ID); n != 1 {
		t.Fatalf("ping count: got %d want 1", n)
	}

	// The ping log is served newest first.
	raw = HTTPDoJSON(t, http.MethodGet, fmt.Sprintf("%s/api/v1/checks/%d/pings", cfg.BaseURL, chk.ID), nil, http.StatusOK)
	var pings []pingResp
	if err := json.Unmarshal(raw, &pings); err != nil {
		t.Fatalf("decode pings: %v", err)
	}
	if len(pings) != 1 || pings[0].Status != "success" {
		t.Fatalf("unexpected ping log: %+v", pings)
	}
}

func TestPingUnknownKey(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HealthURL, 60*time.Second)

	HTTPDoJSON(t, http.MethodGet, cfg.BaseURL+"/ping/not-a-real-key", nil, http.StatusNotFound)
}

func TestIntegrationCRUD(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.HealthURL, 60*time.Second)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	name := fmt.Sprintf("it-hooked-%d", RandSuffix())
	body := []byte(fmt.Sprintf(`{"name":%q,"period_minutes":5,"grace_minutes":1}`, name))
	raw := HTTPDoJSON(t, http.MethodPost, cfg.BaseURL+"/api/v1/checks", body, http.StatusCreated)

	var chk checkResp
	if err := json.Unmarshal(raw, &chk); err != nil {
		t.Fatalf("decode check: %v", err)
	}
	defer DeleteCheckRow(t, db, chk.ID)

	hook := []byte(`{"type":"webhook","name":"ops","target":"https://hooks.example.com/x","notify_on":["down"]}`)
	raw = HTTPDoJSON(t, http.MethodPost, fmt.Sprintf("%s/api/v1/checks/%d/integrations", cfg.BaseURL, chk.ID), hook, http.StatusCreated)

	var in integrationResp
	if err := json.Unmarshal(raw, &in); err != nil {
		t.Fatalf("decode integration: %v", err)
	}
	if !in.Enabled {
		t.Fatalf("integration not enabled by default: %+v", in)
	}

	HTTPDoJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/v1/integrations/%d", cfg.BaseURL, in.ID), nil, http.StatusNoContent)
	HTTPDoJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/v1/integrations/%d", cfg.BaseURL, in.ID), nil, http.StatusNotFound)
}
