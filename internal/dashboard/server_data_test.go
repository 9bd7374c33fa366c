package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finflow/config"
	"finflow/internal/report"
	"finflow/logger"
)

func newTestServer(t *testing.T, rep *report.Generator) *Server {
	t.Helper()
	srv, err := NewServer(config.DashboardConfig{
		Enabled:         true,
		RefreshInterval: time.Second,
		LogHistory:      10,
		ResourceHistory: 10,
	}, "", logger.Logger(), rep)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	if srv == nil {
		t.Fatal("expected non-nil server")
	}
	t.Cleanup(srv.cleanup)
	return srv
}

func TestIndexRendersEmbeddedTemplate(t *testing.T) {
	srv := newTestServer(t, nil)

	router, err := srv.buildRouter("finflow-test")
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "finflow-test") {
		t.Fatal("rendered page does not mention the application name")
	}
}

func TestRunEndpointReportsProgress(t *testing.T) {
	rep := report.NewGenerator()
	rep.SetPlanned(3)
	rep.Add(report.Entry{Contract: "SBER", Timeframe: "DAILY", Rows: 250, Added: 10})

	srv := newTestServer(t, rep)
	router, err := srv.buildRouter("finflow")
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/run", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}

	var body struct {
		Tracking bool           `json:"tracking"`
		Run      report.Summary `json:"run"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !body.Tracking {
		t.Fatal("expected tracking to be reported as enabled")
	}
	if body.Run.Planned != 3 || body.Run.Contracts != 1 || body.Run.Succeeded != 1 {
		t.Fatalf("unexpected run summary: %+v", body.Run)
	}
	if len(body.Run.Entries) != 1 || body.Run.Entries[0].Contract != "SBER" {
		t.Fatalf("unexpected run entries: %+v", body.Run.Entries)
	}
}

func TestRunEndpointWithoutTracker(t *testing.T) {
	srv := newTestServer(t, nil)
	router, err := srv.buildRouter("finflow")
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/run", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}

	var body struct {
		Tracking bool `json:"tracking"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Tracking {
		t.Fatal("expected tracking to be reported as disabled")
	}
}

func TestTransfersEndpointExposesCounters(t *testing.T) {
	logger.IncrementFileWrite(7, 512)

	srv := newTestServer(t, nil)
	router, err := srv.buildRouter("finflow")
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/transfers", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}

	var stats logger.Stats
	if err := json.Unmarshal(res.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	// Counters are process wide, so check floors rather than exact values.
	if stats.FilesWritten < 1 || stats.RowsWritten < 7 {
		t.Fatalf("transfer counters missing recorded write: %+v", stats)
	}
}

func TestLogsEndpointStreamsCapturedEntries(t *testing.T) {
	log := logger.Logger()
	srv, err := NewServer(config.DashboardConfig{Enabled: true, LogHistory: 5}, "", log, nil)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	t.Cleanup(srv.cleanup)

	log.WithComponent("downloader").Info("processed contract")

	router, err := srv.buildRouter("finflow")
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.Code)
	}

	var body struct {
		Logs []struct {
			Component string `json:"component"`
			Message   string `json:"message"`
		} `json:"logs"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	found := false
	for _, l := range body.Logs {
		if l.Component == "downloader" && l.Message == "processed contract" {
			found = true
		}
	}
	if !found {
		t.Fatalf("captured log entry not present in response: %+v", body.Logs)
	}
}
