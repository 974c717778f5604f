// Package daemon provides the long-running background statistics service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/pipeline"
	"github.com/theirongolddev/convstat/internal/source"
	"github.com/theirongolddev/convstat/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	DataDir      string
	UseCache     bool
	CostRate     float64
	Location     *time.Location
	Interval     time.Duration
	Debounce     time.Duration
	Addr         string
	EventsBuffer int
}

// Snapshot is a compact usage state for status/event payloads.
type Snapshot struct {
	At               time.Time `json:"at"`
	Sessions         int64     `json:"sessions"`
	Events           int64     `json:"events"`
	Tokens           int64     `json:"tokens"`
	Rejected         int64     `json:"rejected"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd,omitempty"`
}

// Delta captures snapshot deltas between refreshes.
type Delta struct {
	Sessions         int64   `json:"sessions"`
	Events           int64   `json:"events"`
	Tokens           int64   `json:"tokens"`
	Rejected         int64   `json:"rejected"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd,omitempty"`
}

func (d Delta) isZero() bool {
	return d.Sessions == 0 &&
		d.Events == 0 &&
		d.Tokens == 0 &&
		d.Rejected == 0 &&
		d.EstimatedCostUSD == 0
}

// Event is emitted whenever the usage snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastRefreshAt   time.Time `json:"last_refresh_at"`
	RefreshCount    int64     `json:"refresh_count"`
	IntervalSec     int       `json:"interval_sec"`
	DataDir         string    `json:"data_dir"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config

	mu            sync.RWMutex
	startedAt     time.Time
	lastRefreshAt time.Time
	refreshCount  int64
	lastError     string
	hasSnapshot   bool
	snapshot      Snapshot
	report        model.Report
	nextEventID   int64
	events        []Event

	nextSubID int
	subs      map[int]chan Event

	// refreshCh coalesces filesystem wake-ups; capacity 1 so a burst
	// of writes collapses into one pending refresh.
	refreshCh chan struct{}
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8713"
	}

	return &Service{
		cfg:       cfg,
		startedAt: time.Now(),
		report:    pipeline.Aggregate(nil, nil, nil, cfg.Location),
		subs:      make(map[int]chan Event),
		refreshCh: make(chan struct{}, 1),
	}
}

// Run starts the HTTP endpoints, the filesystem watcher, and the refresh
// loop, and blocks until ctx is canceled or a component fails.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/report", s.handleReport)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Seed the first snapshot so the endpoints are useful immediately.
	s.refresh()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- server.ListenAndServe() }()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("daemon http server: %w", err)
		}
	})

	g.Go(func() error {
		return s.watch(ctx)
	})

	g.Go(func() error {
		s.refreshLoop(ctx)
		return nil
	})

	return g.Wait()
}

// watch wakes the refresh loop when conversation logs change. A watcher
// that cannot start is not fatal; the interval ticker still refreshes.
func (s *Service) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[watch] unavailable, relying on interval refresh: %v", err)
		return nil
	}
	defer watcher.Close()

	roots, err := source.Discover(s.cfg.DataDir)
	if err != nil {
		log.Printf("[watch] no logs to watch yet: %v", err)
	}
	watched := make(map[string]struct{})
	addDir := func(dir string) {
		if _, ok := watched[dir]; ok {
			return
		}
		if err := watcher.Add(dir); err != nil {
			log.Printf("[watch] cannot watch %s: %v", dir, err)
			return
		}
		watched[dir] = struct{}{}
	}
	for _, f := range roots {
		addDir(filepath.Dir(f.Path))
	}
	if s.cfg.DataDir != "" {
		if info, err := os.Stat(s.cfg.DataDir); err == nil && info.IsDir() {
			addDir(s.cfg.DataDir)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New subdirectories start carrying logs too.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					addDir(ev.Name)
					s.wake()
					continue
				}
			}
			if filepath.Ext(ev.Name) != ".jsonl" {
				continue
			}
			s.wake()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[watch] error: %v", err)
		}
	}
}

func (s *Service) wake() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// refreshLoop refreshes on filesystem wake-ups (debounced) and on the
// interval ticker as a fallback.
func (s *Service) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.refreshCh:
			// Let a burst of writes settle before reparsing.
			timer := time.NewTimer(s.cfg.Debounce)
		drain:
			for {
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-s.refreshCh:
				case <-timer.C:
					break drain
				}
			}
			s.refresh()
		case <-ticker.C:
			s.refresh()
		}
	}
}

func (s *Service) refresh() {
	report, err := s.loadReport()
	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastRefreshAt = now
		s.refreshCount++
		s.mu.Unlock()
		log.Printf("[daemon] refresh error: %v", err)
		return
	}

	snap := snapshotFromReport(report, now, s.cfg.CostRate)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.report = report
	s.lastRefreshAt = now
	s.refreshCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "usage_delta",
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func (s *Service) loadReport() (model.Report, error) {
	files, err := source.Discover(s.cfg.DataDir)
	if err != nil {
		return model.Report{}, err
	}

	var result *pipeline.LoadResult
	if s.cfg.UseCache {
		cache, err := store.Open(pipeline.CachePath())
		if err == nil {
			defer func() { _ = cache.Close() }()
			if cr, loadErr := pipeline.LoadWithCache(files, cache, nil); loadErr == nil {
				result = &cr.LoadResult
			}
		}
	}
	if result == nil {
		result, err = pipeline.Load(files, nil)
		if err != nil {
			return model.Report{}, err
		}
	}

	sessions := pipeline.BuildSessions(result.Events)
	return pipeline.Aggregate(result.Events, sessions, result.ParseErrors, s.cfg.Location), nil
}

func snapshotFromReport(report model.Report, at time.Time, costRate float64) Snapshot {
	snap := Snapshot{
		At:       at,
		Sessions: report.TotalSessions,
		Events:   report.TotalEvents,
		Tokens:   report.TokenTotals.Total(),
		Rejected: int64(len(report.ParseErrors)),
	}
	if costRate > 0 {
		snap.EstimatedCostUSD = pipeline.EstimateCost(report, costRate).TotalCost
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Sessions:         curr.Sessions - prev.Sessions,
		Events:           curr.Events - prev.Events,
		Tokens:           curr.Tokens - prev.Tokens,
		Rejected:         curr.Rejected - prev.Rejected,
		EstimatedCostUSD: curr.EstimatedCostUSD - prev.EstimatedCostUSD,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastRefreshAt:   s.lastRefreshAt,
		RefreshCount:    s.refreshCount,
		IntervalSec:     int(s.cfg.Interval.Seconds()),
		DataDir:         s.cfg.DataDir,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

// handleReport serves the full current report. The shallow copy is safe
// because refresh replaces the report's maps wholesale and never edits
// them in place.
func (s *Service) handleReport(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
