package daemon

import (
	"context"
	"encoding/json"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/pipeline"
)

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		Sessions:         10,
		Events:           100,
		Tokens:           1_000_000,
		Rejected:         2,
		EstimatedCostUSD: 10.5,
	}
	curr := Snapshot{
		Sessions:         12,
		Events:           112,
		Tokens:           1_250_000,
		Rejected:         3,
		EstimatedCostUSD: 13.1,
	}

	delta := diffSnapshots(prev, curr)
	if delta.Sessions != 2 {
		t.Fatalf("Sessions delta = %d, want 2", delta.Sessions)
	}
	if delta.Events != 12 {
		t.Fatalf("Events delta = %d, want 12", delta.Events)
	}
	if delta.Tokens != 250_000 {
		t.Fatalf("Tokens delta = %d, want 250000", delta.Tokens)
	}
	if delta.Rejected != 1 {
		t.Fatalf("Rejected delta = %d, want 1", delta.Rejected)
	}
	if math.Abs(delta.EstimatedCostUSD-2.6) > 1e-9 {
		t.Fatalf("Cost delta = %.2f, want 2.60", delta.EstimatedCostUSD)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{
		DataDir:      ".",
		Interval:     10 * time.Second,
		EventsBuffer: 2,
	})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestSnapshotFromReport(t *testing.T) {
	report := model.Report{
		TotalEvents:   5,
		TotalSessions: 2,
		TokenTotals:   model.TokenTotals{Input: 600_000, Output: 400_000},
		ParseErrors:   []model.ParseError{{Line: 3, Reason: model.ReasonInvalidJSON}},
	}
	at := time.Now()

	snap := snapshotFromReport(report, at, 0)
	if snap.Tokens != 1_000_000 || snap.Rejected != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.EstimatedCostUSD != 0 {
		t.Errorf("cost = %v without a rate, want 0", snap.EstimatedCostUSD)
	}

	priced := snapshotFromReport(report, at, 3.0)
	if math.Abs(priced.EstimatedCostUSD-3.0) > 1e-9 {
		t.Errorf("cost = %v with rate 3.0, want 3.0", priced.EstimatedCostUSD)
	}
}

func TestHandleHealth(t *testing.T) {
	s := New(Config{DataDir: "."})
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != 200 || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandleReport(t *testing.T) {
	s := New(Config{DataDir: "."})

	events := []model.Event{{
		SessionID: "a",
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Role:      model.RoleUser,
	}}
	sessions := pipeline.BuildSessions(events)
	s.mu.Lock()
	s.report = pipeline.Aggregate(events, sessions, nil, time.UTC)
	s.mu.Unlock()

	rec := httptest.NewRecorder()
	s.handleReport(rec, httptest.NewRequest("GET", "/v1/report", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var report model.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.TotalEvents != 1 || report.TotalSessions != 1 {
		t.Errorf("report = %+v", report)
	}
}

// A fresh service serves an empty but well-formed report before the
// first refresh completes.
func TestHandleReport_EmptyBeforeRefresh(t *testing.T) {
	s := New(Config{DataDir: "."})

	rec := httptest.NewRecorder()
	s.handleReport(rec, httptest.NewRequest("GET", "/v1/report", nil))

	body := rec.Body.String()
	if strings.Contains(body, "null") {
		t.Errorf("empty report contains JSON nulls: %s", body)
	}
}

func TestHandleStatus(t *testing.T) {
	s := New(Config{DataDir: "/data", Interval: 30 * time.Second})

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("GET", "/v1/status", nil))

	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.DataDir != "/data" || status.IntervalSec != 30 {
		t.Errorf("status = %+v", status)
	}
}

func TestHandleStream_SendsInitialSnapshot(t *testing.T) {
	s := New(Config{DataDir: "."})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/v1/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleStream(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "event: snapshot") || !strings.Contains(body, "data: ") {
		t.Errorf("stream output missing initial snapshot frame: %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.subs) != 0 {
		t.Error("subscriber leaked after stream closed")
	}
}

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")

	if _, err := ReadPID(path); err == nil {
		t.Error("ReadPID on missing file should error")
	}

	if err := WritePID(path, os.Getpid()); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	if !Alive(pid) {
		t.Error("Alive(self) = false")
	}
	if Alive(-1) {
		t.Error("Alive(-1) = true")
	}

	if err := RemovePID(path); err != nil {
		t.Fatalf("RemovePID: %v", err)
	}
	if err := RemovePID(path); err != nil {
		t.Errorf("RemovePID twice should be fine: %v", err)
	}
}
