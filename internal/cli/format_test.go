package cli

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234, "1.2K"},
		{999_999, "1000.0K"},
		{1_234_567, "1.2M"},
		{1_234_567_890, "1.2B"},
		{-1234, "-1.2K"},
	}
	for _, tt := range tests {
		if got := FormatTokens(tt.n); got != tt.want {
			t.Errorf("FormatTokens(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{123, "123"},
		{1234, "1,234"},
		{1_234_567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.n); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "0s"},
		{-5, "0s"},
		{45, "45s"},
		{125, "2m"},
		{3725, "1h 2m"},
		{7200, "2h 0m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.secs); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestFormatCost(t *testing.T) {
	tests := []struct {
		cost float64
		want string
	}{
		{0.5, "$0.50"},
		{12.34, "$12.3"},
		{123.4, "$123"},
		{1234.5, "$1,235"},
	}
	for _, tt := range tests {
		if got := FormatCost(tt.cost); got != tt.want {
			t.Errorf("FormatCost(%v) = %q, want %q", tt.cost, got, tt.want)
		}
	}
}

func TestFormatShare(t *testing.T) {
	if got := FormatShare(1, 4); got != "25.0%" {
		t.Errorf("FormatShare(1,4) = %q, want 25.0%%", got)
	}
	if got := FormatShare(3, 0); got != "0.0%" {
		t.Errorf("FormatShare(3,0) = %q, want 0.0%% (zero whole)", got)
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	if got := FormatTime(ts, time.UTC); got != "2024-01-01 23:30" {
		t.Errorf("FormatTime UTC = %q", got)
	}
	plus2 := time.FixedZone("UTC+2", 2*3600)
	if got := FormatTime(ts, plus2); got != "2024-01-02 01:30" {
		t.Errorf("FormatTime UTC+2 = %q", got)
	}
}

func TestShortenSession(t *testing.T) {
	if got := ShortenSession("abc", 8); got != "abc" {
		t.Errorf("short id changed: %q", got)
	}
	if got := ShortenSession("abcdefgh", 4); got != "abc…" {
		t.Errorf("ShortenSession = %q, want abc…", got)
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline(nil); got != "" {
		t.Errorf("empty sparkline = %q", got)
	}
	got := RenderSparkline([]float64{0, 1})
	if got != "▁█" {
		t.Errorf("RenderSparkline = %q, want ▁█", got)
	}
	flat := RenderSparkline([]float64{0, 0, 0})
	if flat != "▁▁▁" {
		t.Errorf("flat sparkline = %q, want ▁▁▁", flat)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Models",
		Headers: []string{"Model", "Events"},
		Rows: [][]string{
			{"claude-x", "12"},
			{"---"},
			{"total", "12"},
		},
	})

	for _, want := range []string{"Models", "Model", "claude-x", "total", "╭", "╰"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	// The "---" row draws a rule instead of printing the literal text.
	if strings.Contains(out, "---") {
		t.Error("separator row leaked into output")
	}
}

func TestRenderHorizontalBar(t *testing.T) {
	out := RenderHorizontalBar("09", 10, 10, 20)
	if !strings.Contains(out, strings.Repeat("█", 20)) {
		t.Errorf("full bar missing: %q", out)
	}
	if !strings.Contains(out, "10") {
		t.Errorf("value missing from bar row: %q", out)
	}

	zero := RenderHorizontalBar("10", 0, 0, 20)
	if strings.Contains(zero, "█") {
		t.Errorf("zero-max bar should draw nothing: %q", zero)
	}
}

func TestRenderProgressBar(t *testing.T) {
	if got := RenderProgressBar(1, 0, 10); got != "" {
		t.Errorf("zero-total progress = %q, want empty", got)
	}
	out := RenderProgressBar(5, 10, 10)
	if !strings.Contains(out, "5") || !strings.Contains(out, "10") {
		t.Errorf("progress bar missing counts: %q", out)
	}
}
