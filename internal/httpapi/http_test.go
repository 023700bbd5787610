package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"callwatch_roster/internal/journal"
	"callwatch_roster/internal/metrics"
	"callwatch_roster/internal/sched"
)

func setupTest(t *testing.T) (*http.ServeMux, *journal.Journal, *sched.Scheduler) {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = j.Close() })
	q := sched.New(4, time.Second, func(context.Context, sched.Trigger) error { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q.Start(ctx)

	mux := http.NewServeMux()
	NewRouter(j, metrics.New(), q).Register(mux)
	return mux, j, q
}

func TestHealthEndpoint(t *testing.T) {
	mux, _, _ := setupTest(t)
	req := httptest.NewRequest(http.MethodGet, "/ops/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestStatusEndpointReportsLastRun(t *testing.T) {
	mux, j, _ := setupTest(t)
	run := journal.NewRun()
	run.RowsExamined = 200
	run.Finish(journal.StatusSucceeded, nil)
	if err := j.RecordRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/ops/status", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	var body struct {
		LastRun *journal.Run `json:"last_run"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.LastRun == nil || body.LastRun.RowsExamined != 200 {
		t.Fatalf("unexpected last run: %+v", body.LastRun)
	}
}

func TestRunsEndpointHonorsLimit(t *testing.T) {
	mux, j, _ := setupTest(t)
	for i := 0; i < 3; i++ {
		run := journal.NewRun()
		run.Finish(journal.StatusSucceeded, nil)
		if err := j.RecordRun(context.Background(), run); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/ops/runs?limit=2", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	var body struct {
		Runs []journal.Run `json:"runs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(body.Runs))
	}
}

func TestTriggerRunEnqueues(t *testing.T) {
	mux, _, q := setupTest(t)
	req := httptest.NewRequest(http.MethodPost, "/ops/run", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	var body struct {
		Accepted bool `json:"accepted"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Accepted {
		t.Fatal("trigger should be accepted")
	}
	deadline := time.Now().Add(time.Second)
	for q.Stats().Processed == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if q.Stats().Processed != 1 {
		t.Fatalf("expected 1 processed trigger, got %d", q.Stats().Processed)
	}
}

func TestTriggerRunRejectsGet(t *testing.T) {
	mux, _, _ := setupTest(t)
	req := httptest.NewRequest(http.MethodGet, "/ops/run", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
