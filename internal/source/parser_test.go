package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/convstat/internal/model"
)

// writeLog creates a temp JSONL file from lines and returns its path.
func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseLine_Valid(t *testing.T) {
	line := `{"sessionId":"a","timestamp":"2024-01-01T10:05:00Z","type":"assistant","message":{"model":"claude-x","usage":{"input_tokens":10,"output_tokens":20,"cache_creation_input_tokens":5,"cache_read_input_tokens":7},"content":"hello"}}`

	ev, reject := ParseLine([]byte(line), 3)
	if reject != nil {
		t.Fatalf("unexpected rejection: %+v", reject)
	}

	if ev.SessionID != "a" {
		t.Errorf("SessionID = %q, want a", ev.SessionID)
	}
	want := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
	if ev.Role != model.RoleAssistant {
		t.Errorf("Role = %q, want assistant", ev.Role)
	}
	if ev.Model != "claude-x" {
		t.Errorf("Model = %q, want claude-x", ev.Model)
	}
	wantTokens := model.TokenTotals{Input: 10, Output: 20, CacheCreation: 5, CacheRead: 7}
	if ev.Tokens != wantTokens {
		t.Errorf("Tokens = %+v, want %+v", ev.Tokens, wantTokens)
	}
	if ev.TextSample != "hello" {
		t.Errorf("TextSample = %q, want hello", ev.TextSample)
	}
	if ev.Line != 3 {
		t.Errorf("Line = %d, want 3", ev.Line)
	}
}

func TestParseLine_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantLine  int
		reason    string
		wantField string
	}{
		{"malformed json", `{bad`, 1, model.ReasonInvalidJSON, ""},
		{"not json at all", `hello world`, 2, model.ReasonInvalidJSON, ""},
		{"json array", `[1,2,3]`, 3, model.ReasonInvalidJSON, ""},
		{"json scalar", `42`, 4, model.ReasonInvalidJSON, ""},
		{"json null", `null`, 5, model.ReasonInvalidJSON, ""},
		{"missing sessionId", `{"timestamp":"2024-01-01T10:00:00Z"}`, 6, model.ReasonMissingField, "sessionId"},
		{"empty sessionId", `{"sessionId":"","timestamp":"2024-01-01T10:00:00Z"}`, 7, model.ReasonMissingField, "sessionId"},
		{"non-string sessionId", `{"sessionId":42,"timestamp":"2024-01-01T10:00:00Z"}`, 8, model.ReasonMissingField, "sessionId"},
		{"missing timestamp", `{"sessionId":"a"}`, 9, model.ReasonMissingField, "timestamp"},
		{"null timestamp", `{"sessionId":"a","timestamp":null}`, 10, model.ReasonMissingField, "timestamp"},
		{"unparseable timestamp", `{"sessionId":"a","timestamp":"yesterday"}`, 11, model.ReasonMissingField, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reject := ParseLine([]byte(tt.line), tt.wantLine)
			if reject == nil {
				t.Fatal("expected rejection, got event")
			}
			if reject.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", reject.Line, tt.wantLine)
			}
			if reject.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", reject.Reason, tt.reason)
			}
			if reject.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", reject.Field, tt.wantField)
			}
		})
	}
}

func TestParseLine_TolerantTokens(t *testing.T) {
	tests := []struct {
		name string
		line string
		want model.TokenTotals
	}{
		{
			"non-numeric input_tokens",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"usage":{"input_tokens":"lots","output_tokens":20}}}`,
			model.TokenTotals{Output: 20},
		},
		{
			"negative clamps to zero",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"usage":{"input_tokens":-5,"output_tokens":20}}}`,
			model.TokenTotals{Output: 20},
		},
		{
			"float truncates",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"usage":{"input_tokens":10.9}}}`,
			model.TokenTotals{Input: 10},
		},
		{
			"usage not an object",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"usage":"none"}}`,
			model.TokenTotals{},
		},
		{
			"no usage at all",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z"}`,
			model.TokenTotals{},
		},
		{
			"nested cache_creation wins over flat",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"usage":{"cache_creation_input_tokens":999,"cache_creation":{"ephemeral_5m_input_tokens":200,"ephemeral_1h_input_tokens":300}}}}`,
			model.TokenTotals{CacheCreation: 500},
		},
		{
			"garbage cache_creation falls back to flat",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"usage":{"cache_creation_input_tokens":40,"cache_creation":"bad"}}}`,
			model.TokenTotals{CacheCreation: 40},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, reject := ParseLine([]byte(tt.line), 1)
			if reject != nil {
				t.Fatalf("unexpected rejection: %+v", reject)
			}
			if ev.Tokens != tt.want {
				t.Errorf("Tokens = %+v, want %+v", ev.Tokens, tt.want)
			}
		})
	}
}

func TestParseLine_UnrecognizedRoleRetained(t *testing.T) {
	// Structurally valid lines with an unknown role stay events; only the
	// role rollups ignore them.
	line := `{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","type":"summary"}`

	ev, reject := ParseLine([]byte(line), 1)
	if reject != nil {
		t.Fatalf("unexpected rejection: %+v", reject)
	}
	if ev.Role != "summary" {
		t.Errorf("Role = %q, want summary", ev.Role)
	}
	if ev.Role.Known() {
		t.Error("Known() = true for unrecognized role")
	}
}

func TestParseLine_NaiveTimestampReadAsUTC(t *testing.T) {
	line := `{"sessionId":"a","timestamp":"2024-01-01T10:00:00"}`

	ev, reject := ParseLine([]byte(line), 1)
	if reject != nil {
		t.Fatalf("unexpected rejection: %+v", reject)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
}

func TestParseLine_TextSampleBlocks(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			"plain string content",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"content":"fix the python bug"}}`,
			"fix the python bug",
		},
		{
			"block list with tool_use",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"content":[{"type":"text","text":"running tests"},{"type":"tool_use","name":"Bash"}]}}`,
			"running tests [Tool: Bash]",
		},
		{
			"unknown blocks skipped",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"content":[{"type":"image"},{"type":"text","text":"after"}]}}`,
			"after",
		},
		{
			"content not string or list",
			`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"content":42}}`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, reject := ParseLine([]byte(tt.line), 1)
			if reject != nil {
				t.Fatalf("unexpected rejection: %+v", reject)
			}
			if ev.TextSample != tt.want {
				t.Errorf("TextSample = %q, want %q", ev.TextSample, tt.want)
			}
		})
	}
}

func TestParseLine_TextSampleTruncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	line := `{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"content":"` + long + `"}}`

	ev, reject := ParseLine([]byte(line), 1)
	if reject != nil {
		t.Fatalf("unexpected rejection: %+v", reject)
	}
	if len(ev.TextSample) != sampleLimit {
		t.Errorf("len(TextSample) = %d, want %d", len(ev.TextSample), sampleLimit)
	}
}

func TestParseFile_MixedLines(t *testing.T) {
	path := writeLog(t,
		`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","type":"user"}`,
		`{bad`,
		``,
		`{"sessionId":"a","timestamp":"2024-01-01T10:05:00Z","type":"assistant","message":{"model":"claude-x","usage":{"input_tokens":10,"output_tokens":20}}}`,
		`{"timestamp":"2024-01-01T10:06:00Z"}`,
	)

	res := ParseFile(path)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	if len(res.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(res.Events))
	}
	if len(res.ParseErrors) != 2 {
		t.Fatalf("got %d parse errors, want 2", len(res.ParseErrors))
	}

	// Line numbers must survive the blank-line skip.
	if res.ParseErrors[0].Line != 2 || res.ParseErrors[0].Reason != model.ReasonInvalidJSON {
		t.Errorf("first error = %+v, want invalid-json at line 2", res.ParseErrors[0])
	}
	if res.ParseErrors[1].Line != 5 || res.ParseErrors[1].Field != "sessionId" {
		t.Errorf("second error = %+v, want missing sessionId at line 5", res.ParseErrors[1])
	}
	if res.Events[1].Line != 4 {
		t.Errorf("second event line = %d, want 4", res.Events[1].Line)
	}
}

func TestParseFile_EmptyFile(t *testing.T) {
	path := writeLog(t)
	res := ParseFile(path)
	if res.Err != nil {
		t.Fatalf("unexpected error on empty file: %v", res.Err)
	}
	if len(res.Events) != 0 || len(res.ParseErrors) != 0 {
		t.Error("expected zero events and zero errors for empty file")
	}
}

func TestParseFile_MissingFile(t *testing.T) {
	res := ParseFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	if res.Err == nil {
		t.Fatal("expected error for missing file")
	}
}

// FuzzParseLine checks that the parser never panics on arbitrary input and
// always resolves a line to exactly one of event or rejection.
func FuzzParseLine(f *testing.F) {
	f.Add([]byte(`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","type":"user"}`))
	f.Add([]byte(`{"sessionId":"a","timestamp":"2024-01-01T10:05:00Z","type":"assistant","message":{"model":"m","usage":{"input_tokens":1}}}`))
	f.Add([]byte(`{"message":{"usage":{"input_tokens":"NaN"}}}`))
	f.Add([]byte(`not json`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`{"sessionId":null,"timestamp":false}`))
	f.Add([]byte(`{"sessionId":"a","timestamp":"2024-01-01T10:00:00Z","message":{"content":[{"type":"text","text":"hi"}]}}`))
	f.Add([]byte(``))
	f.Add([]byte(`{"sessionId":"a`)) // unterminated string

	f.Fuzz(func(t *testing.T, data []byte) {
		ev, reject := ParseLine(data, 1)

		if reject == nil {
			if ev.SessionID == "" {
				t.Error("accepted event with empty sessionId")
			}
			if ev.Tokens.Input < 0 || ev.Tokens.Output < 0 ||
				ev.Tokens.CacheCreation < 0 || ev.Tokens.CacheRead < 0 {
				t.Errorf("negative token count: %+v", ev.Tokens)
			}
			return
		}
		switch reject.Reason {
		case model.ReasonInvalidJSON, model.ReasonMissingField:
			// ok
		default:
			t.Errorf("unexpected rejection reason %q", reject.Reason)
		}
	})
}
