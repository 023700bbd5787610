// Package watch monitors the snapshot directory for new CallWatch captures
// and enqueues a reconciliation cycle for each one.
package watch

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"callwatch_roster/internal/sched"
)

// Watcher monitors a directory of saved CallWatch pages.
type Watcher struct {
	dir   string
	queue *sched.Scheduler
}

func New(dir string, queue *sched.Scheduler) *Watcher {
	return &Watcher{dir: dir, queue: queue}
}

// Start begins watching the snapshot directory. The goroutine exits when
// ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir == "" {
		log.Println("snapshot watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && w.isSnapshot(evt.Name) {
					w.queue.Enqueue(sched.Trigger{Source: "watch", Snapshot: evt.Name})
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.dir)
}

func (w *Watcher) isSnapshot(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}

// Backfill enqueues a cycle for every snapshot already present.
func (w *Watcher) Backfill() error {
	entries, err := filepath.Glob(filepath.Join(w.dir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if w.isSnapshot(e) {
			w.queue.Enqueue(sched.Trigger{Source: "backfill", Snapshot: e})
		}
	}
	return nil
}
