package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"callwatch_roster/internal/sched"
)

type recorder struct {
	mu        sync.Mutex
	snapshots []string
}

func (r *recorder) run(_ context.Context, t sched.Trigger) error {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, t.Snapshot)
	r.mu.Unlock()
	return nil
}

func (r *recorder) wait(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		got := len(r.snapshots)
		r.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) < n {
		t.Fatalf("expected %d snapshots, saw %d", n, len(r.snapshots))
	}
	return append([]string(nil), r.snapshots...)
}

func TestWatcherEnqueuesNewSnapshots(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	q := sched.New(8, time.Second, rec.run)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	w := New(dir, q)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	path := filepath.Join(dir, "page1.html")
	if err := os.WriteFile(path, []byte("<table></table>"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-snapshot files must not trigger a cycle.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := rec.wait(t, 1)
	if got[0] != path {
		t.Fatalf("unexpected snapshot path %s", got[0])
	}
	time.Sleep(50 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.snapshots) != 1 {
		t.Fatalf("txt file should not trigger, saw %v", rec.snapshots)
	}
}

func TestBackfillEnqueuesExistingSnapshots(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.html", "b.HTM", "skip.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	rec := &recorder{}
	q := sched.New(8, time.Second, rec.run)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	w := New(dir, q)
	if err := w.Backfill(); err != nil {
		t.Fatalf("backfill: %v", err)
	}
	got := rec.wait(t, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %v", got)
	}
}

func TestWatcherDisabledWithoutDir(t *testing.T) {
	w := New("", nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("disabled watcher should be a noop, got %v", err)
	}
}
