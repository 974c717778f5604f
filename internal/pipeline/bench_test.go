package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/convstat/internal/source"
	"github.com/theirongolddev/convstat/internal/store"
)

// genFixtures writes nFiles JSONL logs of linesPerFile events each and
// returns the directory. Content alternates user and assistant turns so
// parsing exercises both the bare and the message/usage paths.
func genFixtures(b *testing.B, nFiles, linesPerFile int) string {
	b.Helper()
	dir := b.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for f := 0; f < nFiles; f++ {
		var sb strings.Builder
		session := fmt.Sprintf("session-%03d", f)
		for i := 0; i < linesPerFile; i++ {
			ts := base.Add(time.Duration(f*linesPerFile+i) * time.Minute).Format(time.RFC3339)
			if i%2 == 0 {
				fmt.Fprintf(&sb, `{"sessionId":%q,"timestamp":%q,"type":"user","message":{"content":"how do I sort a slice"}}`+"\n",
					session, ts)
			} else {
				fmt.Fprintf(&sb, `{"sessionId":%q,"timestamp":%q,"type":"assistant","message":{"model":"claude-x","usage":{"input_tokens":%d,"output_tokens":%d,"cache_read_input_tokens":%d}}}`+"\n",
					session, ts, 100+i, 200+i, 50*i)
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("log-%03d.jsonl", f))
		if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
			b.Fatalf("writing fixture: %v", err)
		}
	}
	return dir
}

func BenchmarkParseFile(b *testing.B) {
	dir := genFixtures(b, 1, 2000)
	files, err := source.ScanDir(dir)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result := source.ParseFile(files[0].Path)
		if result.Err != nil {
			b.Fatal(result.Err)
		}
	}
}

func BenchmarkLoad(b *testing.B) {
	dir := genFixtures(b, 20, 500)
	files, err := source.ScanDir(dir)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := Load(files, nil)
		if err != nil {
			b.Fatal(err)
		}
		_ = result
	}
}

func BenchmarkScanDir(b *testing.B) {
	dir := genFixtures(b, 50, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		files, err := source.ScanDir(dir)
		if err != nil {
			b.Fatal(err)
		}
		_ = files
	}
}

func BenchmarkAggregate(b *testing.B) {
	dir := genFixtures(b, 20, 500)
	files, err := source.ScanDir(dir)
	if err != nil {
		b.Fatal(err)
	}
	result, err := Load(files, nil)
	if err != nil {
		b.Fatal(err)
	}
	sessions := BuildSessions(result.Events)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		report := Aggregate(result.Events, sessions, result.ParseErrors, time.UTC)
		_ = report
	}
}

// BenchmarkLoadWithCache measures the warm path: every file already
// cached, so the run is pure cache reads plus the freshness diff.
func BenchmarkLoadWithCache(b *testing.B) {
	dir := genFixtures(b, 20, 500)
	files, err := source.ScanDir(dir)
	if err != nil {
		b.Fatal(err)
	}

	cache, err := store.Open(filepath.Join(b.TempDir(), "events.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = cache.Close() }()

	if _, err := LoadWithCache(files, cache, nil); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cr, err := LoadWithCache(files, cache, nil)
		if err != nil {
			b.Fatal(err)
		}
		_ = cr
	}
}
