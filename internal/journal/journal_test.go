package journal

import (
	"context"
	"path/filepath"
	"testing"

	"callwatch_roster/internal/roster"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndListRuns(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	run := NewRun()
	run.RowsExamined = 120
	run.NewIDs = 2
	run.Discovered = 3
	run.Finish(StatusSucceeded, nil)
	if err := j.RecordRun(ctx, run); err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := j.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID || got.RowsExamined != 120 || got.Status != StatusSucceeded {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}

	last, err := j.LastRun(ctx)
	if err != nil || last == nil || last.ID != run.ID {
		t.Fatalf("last run mismatch: %+v err=%v", last, err)
	}
}

func TestRecordRunUpsertsByID(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	run := NewRun()
	if err := j.RecordRun(ctx, run); err != nil {
		t.Fatalf("record: %v", err)
	}
	run.RowsExamined = 7
	run.Finish(StatusFailed, context.DeadlineExceeded)
	if err := j.RecordRun(ctx, run); err != nil {
		t.Fatalf("re-record: %v", err)
	}

	runs, err := j.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected upsert, got %d rows", len(runs))
	}
	if runs[0].Status != StatusFailed || runs[0].Error == nil {
		t.Fatalf("unexpected run after upsert: %+v", runs[0])
	}
}

func TestDiscoveriesRoundTrip(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	run := NewRun()
	recs := []roster.Record{
		{RadioID: 3104001, Callsign: "K7ABC", FirstName: "Dale", State: "Arizona"},
		{RadioID: 3104002, Callsign: "K7ABC", FirstName: "Dale", State: "Arizona"},
	}
	if err := j.RecordDiscoveries(ctx, run.ID, recs); err != nil {
		t.Fatalf("record discoveries: %v", err)
	}
	got, err := j.Discoveries(ctx, run.ID)
	if err != nil {
		t.Fatalf("discoveries: %v", err)
	}
	if len(got) != 2 || got[0].RadioID != 3104001 || got[1].Callsign != "K7ABC" {
		t.Fatalf("unexpected discoveries: %+v", got)
	}
}

func TestHealth(t *testing.T) {
	j := openTest(t)
	if err := j.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
