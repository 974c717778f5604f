package source

import (
	"bufio"
	"bytes"
	"os"

	"github.com/theirongolddev/convstat/internal/model"
)

// Scanner buffer sizes: lines carrying full tool output can run long.
const (
	scanInitBuf = 256 * 1024
	scanMaxBuf  = 2 * 1024 * 1024
)

// ParseResult holds the output of parsing one JSONL file.
type ParseResult struct {
	Events      []model.Event
	ParseErrors []model.ParseError
	Err         error
}

// ParseFile reads a JSONL log line by line. Blank lines are skipped
// without a rejection entry; every other line yields exactly one event or
// one parse error, in file order with 1-based line numbers. Only I/O
// failures are fatal.
func ParseFile(path string) ParseResult {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()

	var res ParseResult

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, scanInitBuf), scanMaxBuf)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		ev, reject := ParseLine(line, lineNo)
		if reject != nil {
			res.ParseErrors = append(res.ParseErrors, *reject)
			continue
		}
		res.Events = append(res.Events, ev)
	}
	if err := scanner.Err(); err != nil {
		return ParseResult{Err: err}
	}

	return res
}
