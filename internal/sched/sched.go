// Package sched serializes reconciliation cycles behind a bounded trigger
// queue. Triggers come from the interval ticker, the snapshot watcher, and
// the ops endpoint; a single worker guarantees cycles never overlap.
package sched

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Trigger names one request for a reconciliation cycle.
type Trigger struct {
	Source   string
	Snapshot string
	OnFinish func(error)
}

// Stats exposes current scheduler counters.
type Stats struct {
	Length    int    `json:"length"`
	Capacity  int    `json:"capacity"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Scheduler runs cycles one at a time off a bounded trigger channel.
type Scheduler struct {
	triggers chan Trigger
	run      func(context.Context, Trigger) error
	timeout  time.Duration

	mu        sync.RWMutex
	started   bool
	wg        sync.WaitGroup
	processed uint64
	failed    uint64
	dropped   uint64
}

// New creates a Scheduler with the given trigger capacity and per-cycle
// timeout. run is invoked for every accepted trigger.
func New(capacity int, timeout time.Duration, run func(context.Context, Trigger) error) *Scheduler {
	return &Scheduler{
		triggers: make(chan Trigger, capacity),
		run:      run,
		timeout:  timeout,
	}
}

// Start launches the single cycle worker.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	s.wg.Add(1)
	go s.worker(ctx)
}

// Enqueue attempts to queue a trigger without blocking. A full queue drops
// the trigger, coalescing bursts into the cycles already pending.
func (s *Scheduler) Enqueue(t Trigger) bool {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		log.Printf("trigger from %s before scheduler started", t.Source)
		return false
	}
	select {
	case s.triggers <- t:
		return true
	default:
		atomic.AddUint64(&s.dropped, 1)
		log.Printf("trigger queue full, dropping trigger from %s", t.Source)
		return false
	}
}

// Stop stops accepting triggers and waits for the worker until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	close(s.triggers)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Stats returns current scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Length:    len(s.triggers),
		Capacity:  cap(s.triggers),
		Processed: atomic.LoadUint64(&s.processed),
		Failed:    atomic.LoadUint64(&s.failed),
		Dropped:   atomic.LoadUint64(&s.dropped),
	}
}

// Healthy reports whether the scheduler has been started.
func (s *Scheduler) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-s.triggers:
			if !ok {
				return
			}
			s.handle(ctx, t)
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, t Trigger) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("cycle panic recovered (source=%s): %v", t.Source, r)
		}
	}()

	cycleCtx := ctx
	cancel := func() {}
	if s.timeout > 0 {
		cycleCtx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	err := s.run(cycleCtx, t)
	cancel()
	if t.OnFinish != nil {
		t.OnFinish(err)
	}
	atomic.AddUint64(&s.processed, 1)
	if err != nil {
		atomic.AddUint64(&s.failed, 1)
	}
	status := "success"
	if err != nil {
		status = err.Error()
	}
	log.Printf("cycle source=%s duration_ms=%d status=%s", t.Source, time.Since(start).Milliseconds(), status)
}
