// Package app wires the reconciliation pipeline together and runs it either
// once or as a daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"callwatch_roster/internal/callwatch"
	"callwatch_roster/internal/config"
	"callwatch_roster/internal/enrich"
	"callwatch_roster/internal/httpapi"
	"callwatch_roster/internal/journal"
	"callwatch_roster/internal/metrics"
	"callwatch_roster/internal/notify"
	"callwatch_roster/internal/radioid"
	"callwatch_roster/internal/reconcile"
	"callwatch_roster/internal/roster"
	"callwatch_roster/internal/sched"
	"callwatch_roster/internal/watch"
)

const triggerCapacity = 4

// App holds the wired pipeline components.
type App struct {
	cfg      config.Config
	journal  *journal.Journal
	metrics  *metrics.Metrics
	store    *roster.Store
	enricher *enrich.Enricher
	notifier *notify.Notifier
	queue    *sched.Scheduler
	watcher  *watch.Watcher
	mux      *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	jour, err := journal.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	client := radioid.New(cfg.RadioIDBaseURL, time.Duration(cfg.LookupTimeoutSec)*time.Second, cfg.LookupRatePerSec)
	enricher := enrich.New(client)
	enricher.SetFailureHook(func(id int, err error) {
		m.IncLookupFailure()
		log.Printf("enrich %d skipped: %v", id, err)
	})

	a := &App{
		cfg:      cfg,
		journal:  jour,
		metrics:  m,
		enricher: enricher,
		notifier: notify.New(cfg.GroupMeBotID, cfg.GroupMeURL),
		store: &roster.Store{
			CodePlugPath: cfg.CodePlugPath,
			AuditPath:    cfg.AuditPath,
			GroupPath:    cfg.GroupPath,
		},
	}
	a.queue = sched.New(triggerCapacity, time.Duration(cfg.IntervalSec)*time.Second, a.cycle)
	a.watcher = watch.New(cfg.SnapshotDir, a.queue)
	a.mux = http.NewServeMux()
	httpapi.NewRouter(jour, m, a.queue).Register(a.mux)
	return a, nil
}

func (a *App) Close() error { return a.journal.Close() }

func (a *App) Mux() *http.ServeMux { return a.mux }

// RunOnce executes a single reconciliation cycle against the configured
// source and returns its error.
func (a *App) RunOnce(ctx context.Context) error {
	return a.cycle(ctx, sched.Trigger{Source: "once"})
}

// Run starts the daemon: trigger queue, interval ticker, snapshot watcher in
// dir mode, and the ops HTTP server. It blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.queue.Start(ctx)

	if a.cfg.SourceMode == "dir" {
		if err := a.watcher.Start(ctx); err != nil {
			return err
		}
		if err := a.watcher.Backfill(); err != nil {
			log.Printf("WARN: snapshot backfill failed: %v", err)
		}
	} else {
		a.queue.Enqueue(sched.Trigger{Source: "startup"})
		go a.tick(ctx)
	}

	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.queue.Stop(stopCtx)
	return err
}

func (a *App) tick(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(a.cfg.IntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.queue.Enqueue(sched.Trigger{Source: "ticker"})
		}
	}
}

// cycle runs one reconciliation pass and records it in the journal whatever
// the outcome.
func (a *App) cycle(ctx context.Context, t sched.Trigger) error {
	run := journal.NewRun()
	err := a.reconcileOnce(ctx, t.Snapshot, run)
	if err != nil {
		run.Finish(journal.StatusFailed, err)
	} else {
		run.Finish(journal.StatusSucceeded, nil)
	}
	a.metrics.RecordRunCompletion(err)
	if jerr := a.journal.RecordRun(context.WithoutCancel(ctx), run); jerr != nil {
		log.Printf("WARN: record run %s: %v", run.ID, jerr)
	}
	return err
}

func (a *App) reconcileOnce(ctx context.Context, snapshot string, run *journal.Run) error {
	src, err := a.source(snapshot)
	if err != nil {
		return err
	}
	rows, err := callwatch.Collect(ctx, src)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("no rows parsed from source")
	}
	run.RowsExamined = len(rows)
	a.metrics.AddRowsExamined(len(rows))
	log.Printf("%d Radio IDs examined.", len(rows))

	main, audit, group, err := a.store.Load()
	if err != nil {
		return err
	}

	res := reconcile.Classify(rows, main, reconcile.Rules{
		GroupTokens: a.cfg.GroupTokens,
		Network:     a.cfg.Network,
	})
	run.NewIDs = len(res.NewIDs)
	run.GroupIDs = len(res.GroupIDs)

	discovered := a.enricher.Enrich(ctx, res.NewIDs)
	run.Discovered = roster.MergeNew(main, audit, discovered)
	a.metrics.AddNewIdentities(run.Discovered)

	candidates := a.enricher.EnrichForGroup(ctx, res.GroupIDs, group)
	run.GroupAdded = roster.MergeGroup(group, candidates)

	if err := a.store.Persist(main, audit, group); err != nil {
		return err
	}
	if len(discovered) > 0 {
		if err := a.journal.RecordDiscoveries(ctx, run.ID, discovered); err != nil {
			log.Printf("WARN: record discoveries for run %s: %v", run.ID, err)
		}
	}
	if err := a.notifier.AnnounceDiscoveries(discovered); err != nil {
		log.Printf("WARN: groupme notify failed: %v", err)
	}
	log.Printf("SUCCESS: %d New Users discovered.", run.Discovered)
	return nil
}

// source picks the row source for one cycle. A watcher trigger names the
// snapshot directly; otherwise dir mode reads the newest snapshot and http
// mode fetches the live table.
func (a *App) source(snapshot string) (callwatch.Source, error) {
	cols := callwatch.Columns{
		Alias:   a.cfg.AliasCol,
		Group:   a.cfg.GroupCol,
		Network: a.cfg.NetworkCol,
	}
	if snapshot != "" {
		return callwatch.NewFileSource(snapshot, cols, a.cfg.MaxRows)
	}
	if a.cfg.SourceMode == "dir" {
		latest, err := latestSnapshot(a.cfg.SnapshotDir)
		if err != nil {
			return nil, err
		}
		return callwatch.NewFileSource(latest, cols, a.cfg.MaxRows)
	}
	client := callwatch.NewClient(a.cfg.CallWatchURL, cols, a.cfg.MaxRows, time.Duration(a.cfg.LookupTimeoutSec)*time.Second)
	client.PageParam = a.cfg.PageParam
	return client, nil
}

func latestSnapshot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("unable to access %s: %w", dir, err)
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".html" && ext != ".htm" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no snapshots in %s", dir)
	}
	return newest, nil
}
