package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/convstat/internal/source"
	"github.com/theirongolddev/convstat/internal/store"
)

// CachedLoadResult extends LoadResult with cache metadata.
type CachedLoadResult struct {
	LoadResult
	CacheHits int
	Reparsed  int
}

// LoadWithCache diffs the discovered files against the cache, parses only
// the changed ones, and serves the rest from the store. The merged result
// keeps the same deterministic order as Load: file order, then line
// order. Cache rows for files that no longer exist are pruned.
func LoadWithCache(files []source.DiscoveredFile, cache *store.Cache, progressFn ProgressFunc) (*CachedLoadResult, error) {
	result := &CachedLoadResult{LoadResult: LoadResult{TotalFiles: len(files)}}
	if len(files) == 0 {
		return result, nil
	}

	tracked, err := cache.TrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	// Partition into unchanged (serve from cache) and changed (reparse).
	type slot struct {
		file   source.DiscoveredFile
		cached bool
		parsed source.ParseResult
	}
	slots := make([]slot, len(files))
	var toReparse []int

	for i, f := range files {
		slots[i].file = f
		info, ok := tracked[f.Path]
		if ok && info.MtimeNs == f.ModTime.UnixNano() && info.SizeBytes == f.Size {
			slots[i].cached = true
			continue
		}
		toReparse = append(toReparse, i)
	}

	result.CacheHits = len(files) - len(toReparse)
	result.Reparsed = len(toReparse)

	if len(toReparse) > 0 {
		numWorkers := runtime.GOMAXPROCS(0)
		if numWorkers < 1 {
			numWorkers = 4
		}
		if numWorkers > len(toReparse) {
			numWorkers = len(toReparse)
		}

		work := make(chan int, len(toReparse))
		var wg sync.WaitGroup
		var processed atomic.Int64

		for _, idx := range toReparse {
			work <- idx
		}
		close(work)

		wg.Add(numWorkers)
		for w := 0; w < numWorkers; w++ {
			go func() {
				defer wg.Done()
				for idx := range work {
					slots[idx].parsed = source.ParseFile(slots[idx].file.Path)
					n := processed.Add(1)
					if progressFn != nil {
						progressFn(int(n)+result.CacheHits, result.TotalFiles)
					}
				}
			}()
		}

		wg.Wait()
	}

	// Merge in file order; cache writes stay on this goroutine since
	// SQLite allows one writer.
	var firstErr error
	for i := range slots {
		s := &slots[i]

		if s.cached {
			events, perrs, err := cache.LoadFile(s.file.Path)
			if err != nil {
				return nil, fmt.Errorf("loading cached events: %w", err)
			}
			result.ParsedFiles++
			result.Events = append(result.Events, events...)
			result.ParseErrors = append(result.ParseErrors, stampFile(perrs, s.file.Path)...)
			continue
		}

		if s.parsed.Err != nil {
			result.FileErrors++
			if firstErr == nil {
				firstErr = s.parsed.Err
			}
			continue
		}

		result.ParsedFiles++
		result.Events = append(result.Events, s.parsed.Events...)
		result.ParseErrors = append(result.ParseErrors, stampFile(s.parsed.ParseErrors, s.file.Path)...)

		if err := cache.SaveFile(s.file.Path, s.file.ModTime.UnixNano(), s.file.Size,
			s.parsed.Events, s.parsed.ParseErrors); err != nil {
			return nil, fmt.Errorf("caching %s: %w", s.file.Path, err)
		}
	}

	if result.FileErrors == result.TotalFiles {
		return nil, fmt.Errorf("no input could be read: %w", firstErr)
	}

	existing := make(map[string]struct{}, len(files))
	for _, f := range files {
		existing[f.Path] = struct{}{}
	}
	if err := cache.Prune(existing); err != nil {
		return nil, fmt.Errorf("pruning cache: %w", err)
	}

	return result, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "convstat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "convstat")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "events.db")
}
