package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/convstat/internal/model"
	"github.com/theirongolddev/convstat/internal/source"
)

// LoadResult holds the output of the full loading pipeline: every parsed
// event and rejection in deterministic input order (file order, then line
// order), so downstream aggregation behaves as if it had read one stream.
type LoadResult struct {
	Events      []model.Event
	ParseErrors []model.ParseError
	TotalFiles  int
	ParsedFiles int
	FileErrors  int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load parses the discovered files with a bounded worker pool. Per-line
// problems become parse errors in the result; a file that cannot be read
// is counted and skipped, except that a run where every file fails is a
// fatal error (the input could not be read at all).
func Load(files []source.DiscoveredFile, progressFn ProgressFunc) (*LoadResult, error) {
	result := &LoadResult{TotalFiles: len(files)}
	if len(files) == 0 {
		return result, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx].Path)
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	// Collect in file order so parallel and sequential runs agree.
	var firstErr error
	for i, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			if firstErr == nil {
				firstErr = pr.Err
			}
			continue
		}
		result.ParsedFiles++
		result.Events = append(result.Events, pr.Events...)
		result.ParseErrors = append(result.ParseErrors, stampFile(pr.ParseErrors, files[i].Path)...)
	}

	if result.FileErrors == result.TotalFiles {
		return nil, fmt.Errorf("no input could be read: %w", firstErr)
	}

	return result, nil
}

// stampFile records the originating file on each rejection; with a single
// input file the path is still useful in error listings.
func stampFile(errs []model.ParseError, path string) []model.ParseError {
	for i := range errs {
		errs[i].File = path
	}
	return errs
}
