// Package metrics tracks operational counters across reconciliation runs.
package metrics

import "sync/atomic"

// Metrics captures shared stats for the reconciliation cycles.
type Metrics struct {
	rowsExamined   int64
	newIdentities  int64
	lookupFailures int64
	runsSucceeded  int64
	runsFailed     int64
}

// Snapshot is a consistent read-only view of the counters.
type Snapshot struct {
	RowsExamined   int64 `json:"rows_examined"`
	NewIdentities  int64 `json:"new_identities"`
	LookupFailures int64 `json:"lookup_failures"`
	RunsSucceeded  int64 `json:"runs_succeeded"`
	RunsFailed     int64 `json:"runs_failed"`
}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) AddRowsExamined(n int)  { atomic.AddInt64(&m.rowsExamined, int64(n)) }
func (m *Metrics) AddNewIdentities(n int) { atomic.AddInt64(&m.newIdentities, int64(n)) }
func (m *Metrics) IncLookupFailure()      { atomic.AddInt64(&m.lookupFailures, 1) }

// RecordRunCompletion increments the run counters based on outcome.
func (m *Metrics) RecordRunCompletion(err error) {
	if err != nil {
		atomic.AddInt64(&m.runsFailed, 1)
		return
	}
	atomic.AddInt64(&m.runsSucceeded, 1)
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RowsExamined:   atomic.LoadInt64(&m.rowsExamined),
		NewIdentities:  atomic.LoadInt64(&m.newIdentities),
		LookupFailures: atomic.LoadInt64(&m.lookupFailures),
		RunsSucceeded:  atomic.LoadInt64(&m.runsSucceeded),
		RunsFailed:     atomic.LoadInt64(&m.runsFailed),
	}
}
