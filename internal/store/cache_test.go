package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/convstat/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testEvents() []model.Event {
	return []model.Event{
		{
			SessionID:  "a",
			Timestamp:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			Role:       model.RoleUser,
			TextSample: "fix the bug",
			Line:       1,
		},
		{
			SessionID: "a",
			Timestamp: time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC),
			Role:      model.RoleAssistant,
			Model:     "claude-x",
			Tokens:    model.TokenTotals{Input: 10, Output: 20, CacheRead: 5},
			Line:      2,
		},
	}
}

func TestCache_SaveLoadRoundTrip(t *testing.T) {
	c := openTestCache(t)

	events := testEvents()
	perrs := []model.ParseError{
		{Line: 3, Reason: model.ReasonInvalidJSON},
		{Line: 4, Reason: model.ReasonMissingField, Field: "timestamp"},
	}

	if err := c.SaveFile("/logs/a.jsonl", 111, 222, events, perrs); err != nil {
		t.Fatalf("save: %v", err)
	}

	gotEvents, gotErrs, err := c.LoadFile("/logs/a.jsonl")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(gotEvents) != len(events) {
		t.Fatalf("got %d events, want %d", len(gotEvents), len(events))
	}
	for i, ev := range events {
		got := gotEvents[i]
		if got.SessionID != ev.SessionID || got.Role != ev.Role || got.Model != ev.Model ||
			got.Tokens != ev.Tokens || got.TextSample != ev.TextSample || got.Line != ev.Line {
			t.Errorf("event[%d] = %+v, want %+v", i, got, ev)
		}
		if !got.Timestamp.Equal(ev.Timestamp) {
			t.Errorf("event[%d] timestamp = %v, want %v", i, got.Timestamp, ev.Timestamp)
		}
	}

	if len(gotErrs) != 2 {
		t.Fatalf("got %d parse errors, want 2", len(gotErrs))
	}
	if gotErrs[0].Reason != model.ReasonInvalidJSON || gotErrs[0].Line != 3 {
		t.Errorf("first error = %+v", gotErrs[0])
	}
	if gotErrs[1].Field != "timestamp" {
		t.Errorf("second error field = %q, want timestamp", gotErrs[1].Field)
	}
}

func TestCache_ReplaceClearsOldRows(t *testing.T) {
	c := openTestCache(t)

	if err := c.SaveFile("/logs/a.jsonl", 1, 1, testEvents(), nil); err != nil {
		t.Fatalf("first save: %v", err)
	}

	replacement := []model.Event{{
		SessionID: "b",
		Timestamp: time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC),
		Role:      model.RoleUser,
		Line:      1,
	}}
	if err := c.SaveFile("/logs/a.jsonl", 2, 2, replacement, nil); err != nil {
		t.Fatalf("second save: %v", err)
	}

	events, _, err := c.LoadFile("/logs/a.jsonl")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 1 || events[0].SessionID != "b" {
		t.Errorf("got %d events (first session %q), want the replacement only",
			len(events), events[0].SessionID)
	}

	count, err := c.EventCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("EventCount = %d, want 1 (old rows cascaded)", count)
	}
}

func TestCache_TrackedFiles(t *testing.T) {
	c := openTestCache(t)

	if err := c.SaveFile("/logs/a.jsonl", 100, 200, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveFile("/logs/b.jsonl", 300, 400, nil, nil); err != nil {
		t.Fatal(err)
	}

	tracked, err := c.TrackedFiles()
	if err != nil {
		t.Fatalf("tracked: %v", err)
	}
	if len(tracked) != 2 {
		t.Fatalf("got %d tracked files, want 2", len(tracked))
	}
	if fi := tracked["/logs/a.jsonl"]; fi.MtimeNs != 100 || fi.SizeBytes != 200 {
		t.Errorf("a.jsonl info = %+v, want {100 200}", fi)
	}
}

func TestCache_Prune(t *testing.T) {
	c := openTestCache(t)

	if err := c.SaveFile("/logs/keep.jsonl", 1, 1, testEvents(), nil); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveFile("/logs/gone.jsonl", 1, 1, testEvents(), nil); err != nil {
		t.Fatal(err)
	}

	existing := map[string]struct{}{"/logs/keep.jsonl": {}}
	if err := c.Prune(existing); err != nil {
		t.Fatalf("prune: %v", err)
	}

	tracked, err := c.TrackedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(tracked) != 1 {
		t.Fatalf("got %d tracked files after prune, want 1", len(tracked))
	}
	if _, ok := tracked["/logs/keep.jsonl"]; !ok {
		t.Error("surviving file should be keep.jsonl")
	}

	events, _, err := c.LoadFile("/logs/gone.jsonl")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("pruned file still has %d cached events", len(events))
	}
}
