// Package source discovers and parses conversation JSONL logs.
package source

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/theirongolddev/convstat/internal/model"
)

// sampleLimit caps how much message content is kept for keyword detection.
const sampleLimit = 200

// ParseLine decodes a single JSONL line into an event. It is a pure
// function of the line and its 1-based number; no cross-line state.
//
// Rejection policy:
//   - line is not a JSON object → "invalid-json"
//   - object lacks a sessionId, or its timestamp is missing/unparseable
//     → "missing-required-field" carrying the field name
//
// Every other field is read tolerantly with an explicit default: token
// sub-fields that are present but non-numeric count as 0, non-string
// values for string fields count as absent, unknown fields are ignored.
func ParseLine(line []byte, lineNo int) (model.Event, *model.ParseError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		return model.Event{}, &model.ParseError{Line: lineNo, Reason: model.ReasonInvalidJSON}
	}

	sessionID, ok := stringField(fields, "sessionId")
	if !ok || sessionID == "" {
		return model.Event{}, &model.ParseError{
			Line: lineNo, Reason: model.ReasonMissingField, Field: "sessionId",
		}
	}

	rawTS, ok := stringField(fields, "timestamp")
	if !ok {
		return model.Event{}, &model.ParseError{
			Line: lineNo, Reason: model.ReasonMissingField, Field: "timestamp",
		}
	}
	ts, ok := parseTimestamp(rawTS)
	if !ok {
		return model.Event{}, &model.ParseError{
			Line: lineNo, Reason: model.ReasonMissingField, Field: "timestamp",
		}
	}

	ev := model.Event{
		SessionID: sessionID,
		Timestamp: ts,
		Line:      lineNo,
	}

	if role, ok := stringField(fields, "type"); ok {
		ev.Role = model.Role(role)
	}

	if rawMsg, ok := fields["message"]; ok {
		var msg map[string]json.RawMessage
		if err := json.Unmarshal(rawMsg, &msg); err == nil {
			if m, ok := stringField(msg, "model"); ok {
				ev.Model = m
			}
			if rawUsage, ok := msg["usage"]; ok {
				ev.Tokens = parseUsage(rawUsage)
			}
			if rawContent, ok := msg["content"]; ok {
				ev.TextSample = textSample(rawContent)
			}
		}
	}

	return ev, nil
}

// parseTimestamp accepts the ISO-8601 shapes seen in real logs: RFC 3339
// with or without fractional seconds, and the offset-less form some older
// writers emitted, which is read as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, true
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

// parseUsage reads the nested usage structure field by field. A nested
// cache_creation breakdown, when decodable, takes precedence over the
// flat cache_creation_input_tokens count (it is the final billed split).
func parseUsage(raw json.RawMessage) model.TokenTotals {
	var usage map[string]json.RawMessage
	if err := json.Unmarshal(raw, &usage); err != nil || usage == nil {
		return model.TokenTotals{}
	}

	totals := model.TokenTotals{
		Input:         countField(usage, "input_tokens"),
		Output:        countField(usage, "output_tokens"),
		CacheCreation: countField(usage, "cache_creation_input_tokens"),
		CacheRead:     countField(usage, "cache_read_input_tokens"),
	}

	if rawCC, ok := usage["cache_creation"]; ok {
		if nested, ok := parseCacheCreation(rawCC); ok {
			totals.CacheCreation = nested
		}
	}

	return totals
}

// parseCacheCreation sums the per-TTL cache write buckets.
func parseCacheCreation(raw json.RawMessage) (int64, bool) {
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil || nested == nil {
		return 0, false
	}
	return countField(nested, "ephemeral_5m_input_tokens") +
		countField(nested, "ephemeral_1h_input_tokens"), true
}

// countField reads a numeric sub-field. Present but non-numeric values
// count as 0 rather than rejecting the line; fractional values truncate;
// negatives clamp to 0 (token counts are non-negative).
func countField(fields map[string]json.RawMessage, key string) int64 {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0
		}
		n = int64(f)
	}
	if n < 0 {
		return 0
	}
	return n
}

// stringField reads a string-typed field; a present but non-string value
// counts as absent.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// textSample extracts a short sample from message.content, which is either
// a plain string or a list of content blocks. Text blocks are joined;
// tool_use blocks render as "[Tool: name]"; other block types are skipped.
func textSample(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return truncateSample(s)
	}

	var blocks []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	var b strings.Builder
	for _, block := range blocks {
		typ, _ := stringField(block, "type")
		switch typ {
		case "text":
			if txt, ok := stringField(block, "text"); ok && txt != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(txt)
			}
		case "tool_use":
			if name, ok := stringField(block, "name"); ok && name != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString("[Tool: " + name + "]")
			}
		}
		if b.Len() >= sampleLimit {
			break
		}
	}
	return truncateSample(b.String())
}

func truncateSample(s string) string {
	if len(s) <= sampleLimit {
		return s
	}
	cut := sampleLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
