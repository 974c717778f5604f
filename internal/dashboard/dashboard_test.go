package dashboard

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/convstat/internal/model"
)

func fixtureReport() model.Report {
	return model.Report{
		TotalEvents:   4,
		TotalSessions: 2,
		TokenTotals:   model.TokenTotals{Input: 1200, Output: 800},
		ModelBreakdown: map[string]model.ModelStats{
			"claude-x": {EventCount: 2, Tokens: model.TokenTotals{Input: 1000, Output: 700}},
			"claude-y": {EventCount: 1, Tokens: model.TokenTotals{Input: 200, Output: 100}},
		},
		HourlyActivity: map[int]int64{9: 3, 14: 1},
		DailyActivity:  map[string]int64{"2024-01-02": 1, "2024-01-01": 3},
		DailyTokens:    map[string]int64{"2024-01-02": 300, "2024-01-01": 1700},
	}
}

func fixtureSessions() []*model.Session {
	old := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)
	return []*model.Session{
		{
			ID:      "alpha-session-long-id",
			Events:  []model.Event{{SessionID: "alpha-session-long-id", Timestamp: old, TextSample: "a python question"}},
			EndTime: old,
			ModelUsage: map[string]model.TokenTotals{
				"claude-x": {Input: 1000, Output: 700},
			},
		},
		{
			ID:      "beta",
			Events:  []model.Event{{SessionID: "beta", Timestamp: newer, TextSample: "tell me a story"}},
			EndTime: newer,
			ModelUsage: map[string]model.TokenTotals{
				"claude-y": {Input: 200, Output: 100},
			},
		},
	}
}

func TestBuild_Series(t *testing.T) {
	now := time.Date(2024, 1, 2, 14, 3, 0, 0, time.UTC)
	data := Build(fixtureReport(), fixtureSessions(), Options{Location: time.UTC, Now: now})

	if !reflect.DeepEqual(data.DailyLabels, []string{"2024-01-01", "2024-01-02"}) {
		t.Errorf("DailyLabels = %v, want sorted dates", data.DailyLabels)
	}
	if !reflect.DeepEqual(data.DailyTokens, []int64{1700, 300}) {
		t.Errorf("DailyTokens = %v, not aligned with labels", data.DailyTokens)
	}

	if len(data.HourlyCounts) != 24 || len(data.HourlyLabels) != 24 {
		t.Fatalf("hourly series lengths = %d/%d, want 24", len(data.HourlyLabels), len(data.HourlyCounts))
	}
	if data.HourlyCounts[9] != 3 || data.HourlyCounts[0] != 0 {
		t.Errorf("HourlyCounts = %v, want bucket 9 = 3 and zeros elsewhere", data.HourlyCounts)
	}

	if !reflect.DeepEqual(data.ModelLabels, []string{"claude-x", "claude-y"}) {
		t.Errorf("ModelLabels = %v, want busiest first", data.ModelLabels)
	}
	if !reflect.DeepEqual(data.ModelEvents, []int64{2, 1}) {
		t.Errorf("ModelEvents = %v", data.ModelEvents)
	}

	if data.TotalTokens != "2.0K" {
		t.Errorf("TotalTokens = %q, want 2.0K", data.TotalTokens)
	}
	if data.AvgTokens != "1.0K" {
		t.Errorf("AvgTokens = %q, want 1.0K", data.AvgTokens)
	}
	if data.CostAvailable {
		t.Error("CostAvailable = true without a cost estimate")
	}
}

func TestBuild_SessionRows(t *testing.T) {
	now := time.Date(2024, 1, 2, 14, 3, 0, 0, time.UTC)
	data := Build(fixtureReport(), fixtureSessions(), Options{Location: time.UTC, Now: now})

	if len(data.Sessions) != 2 {
		t.Fatalf("got %d session rows, want 2", len(data.Sessions))
	}
	// Most recent activity first.
	if data.Sessions[0].ID != "beta" {
		t.Errorf("first row = %q, want beta (most recent)", data.Sessions[0].ID)
	}
	if data.Sessions[0].Status != "active" {
		t.Errorf("beta status = %q, want active (3 minutes idle)", data.Sessions[0].Status)
	}
	if data.Sessions[1].Status != "inactive" {
		t.Errorf("alpha status = %q, want inactive", data.Sessions[1].Status)
	}
	if data.Sessions[1].ID != "alpha-sessio…" {
		t.Errorf("long id = %q, want truncated", data.Sessions[1].ID)
	}
	if data.Sessions[1].Tech != "python" {
		t.Errorf("alpha tech = %q, want python", data.Sessions[1].Tech)
	}
	if data.Sessions[0].Model != "claude-y" {
		t.Errorf("beta model = %q, want claude-y", data.Sessions[0].Model)
	}
}

func TestRender_HTML(t *testing.T) {
	now := time.Date(2024, 1, 2, 14, 3, 0, 0, time.UTC)
	data := Build(fixtureReport(), fixtureSessions(), Options{Location: time.UTC, Now: now})

	var buf bytes.Buffer
	if err := Render(&buf, data); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"tokenChart", "hourlyChart", "modelChart", "techChart",
		"claude-x", "beta", "2024-01-01", "filter-tab", "chart.umd.min.js",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestRender_EscapesSessionIDs(t *testing.T) {
	s := &model.Session{
		ID:      "<script>alert(1)</script>",
		Events:  []model.Event{{SessionID: "x"}},
		EndTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data := Build(model.Report{TotalSessions: 1, TotalEvents: 1}, []*model.Session{s},
		Options{Location: time.UTC, Now: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)})

	var buf bytes.Buffer
	if err := Render(&buf, data); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), "<script>aler") {
		t.Error("session id injected unescaped markup")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.html")
	data := Build(fixtureReport(), fixtureSessions(), Options{Location: time.UTC, Now: time.Now()})

	if err := WriteFile(path, data); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(content), "<!DOCTYPE html>") {
		t.Error("output is not an HTML document")
	}
}
