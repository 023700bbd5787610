// Package httpapi exposes the /ops endpoints for health, status, run
// history, and on-demand reconciliation.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"callwatch_roster/internal/journal"
	"callwatch_roster/internal/metrics"
	"callwatch_roster/internal/sched"
)

// Router builds HTTP handlers for /ops.
type Router struct {
	journal *journal.Journal
	metrics *metrics.Metrics
	queue   *sched.Scheduler
}

func NewRouter(j *journal.Journal, m *metrics.Metrics, q *sched.Scheduler) *Router {
	return &Router{journal: j, metrics: m, queue: q}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ops/health", r.health)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/runs", r.runs)
	mux.HandleFunc("/ops/runs/", r.runDetail)
	mux.HandleFunc("/ops/run", r.triggerRun)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.journal.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !r.queue.Healthy() {
		http.Error(w, "scheduler not started", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	last, err := r.journal.LastRun(req.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{
		"metrics":  r.metrics.Snapshot(),
		"queue":    r.queue.Stats(),
		"last_run": last,
	})
}

func (r *Router) runs(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := r.journal.ListRuns(req.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"runs": runs})
}

func (r *Router) runDetail(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runID := strings.TrimPrefix(req.URL.Path, "/ops/runs/")
	if runID == "" {
		http.NotFound(w, req)
		return
	}
	recs, err := r.journal.Discoveries(req.Context(), runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"run_id": runID, "discoveries": recs})
}

func (r *Router) triggerRun(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accepted := r.queue.Enqueue(sched.Trigger{Source: "ops"})
	if !accepted {
		respondJSON(w, map[string]any{"accepted": false})
		return
	}
	respondJSON(w, map[string]any{"accepted": true})
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
