package source

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// DiscoveredFile is one JSONL log selected for aggregation. Size and
// ModTime feed the incremental cache's change detection.
type DiscoveredFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Discover resolves path into the ordered set of JSONL files to read. A
// file path yields exactly that file; a directory is walked for *.jsonl
// entries in lexical order. An empty path probes the platform's default
// log locations. The returned error is the run's only fatal condition.
func Discover(path string) ([]DiscoveredFile, error) {
	if path == "" {
		dir, ok := DefaultDataDir()
		if !ok {
			return nil, fmt.Errorf("no conversation logs found in the default locations; pass a path")
		}
		path = dir
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	if !info.IsDir() {
		return []DiscoveredFile{{Path: path, Size: info.Size(), ModTime: info.ModTime()}}, nil
	}

	files, err := ScanDir(path)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return files, nil
}

// ScanDir walks dir and collects every *.jsonl file. WalkDir visits
// entries in lexical order, which keeps multi-file runs deterministic.
func ScanDir(dir string) ([]DiscoveredFile, error) {
	var files []DiscoveredFile

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // entry vanished mid-walk
		}
		files = append(files, DiscoveredFile{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})

	return files, err
}

// DefaultDataDir probes the platform's usual conversation-log locations
// and returns the first directory that exists.
func DefaultDataDir() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}

	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			filepath.Join(home, ".claude", "projects"),
			filepath.Join(home, "Library", "Application Support", "Claude"),
		}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			candidates = append(candidates, filepath.Join(appData, "Claude"))
		}
		candidates = append(candidates, filepath.Join(home, ".claude", "projects"))
	default:
		candidates = []string{
			filepath.Join(home, ".claude", "projects"),
			filepath.Join(home, ".config", "claude"),
		}
	}

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}
