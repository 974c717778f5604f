// Package detect labels sessions with a technology or topic by keyword
// matching. It is a heuristic aid for the tech command and the dashboard,
// deliberately kept outside the numeric aggregation path.
package detect

import (
	"strings"

	"github.com/theirongolddev/convstat/internal/model"
)

// General is the fallback label when no rule matches.
const General = "general"

const (
	// sampleEvents bounds how many events contribute text per session.
	sampleEvents = 3
	// samplePerEvent bounds how much text each event contributes.
	samplePerEvent = 500
)

// Rule maps keywords to a label. The first rule with any keyword found
// in the session text wins, so rule order is significant.
type Rule struct {
	Name     string
	Keywords []string
}

// DefaultRules returns the built-in rule set, checked in order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "python", Keywords: []string{"python", ".py", "import ", "def "}},
		{Name: "javascript", Keywords: []string{"javascript", ".js", "npm", "node"}},
		{Name: "react", Keywords: []string{"react", "jsx", "component"}},
		{Name: "web", Keywords: []string{"html", "css", "web", "website"}},
		{Name: "debugging", Keywords: []string{"debug", "error", "bug", "fix"}},
		{Name: "data", Keywords: []string{"data", "analysis", "csv", "pandas"}},
	}
}

// Detector classifies text against an ordered rule list.
type Detector struct {
	rules []Rule
}

// New builds a detector. Custom rules are checked before the built-ins,
// so a user rule can shadow a default label.
func New(custom ...Rule) *Detector {
	rules := make([]Rule, 0, len(custom)+6)
	rules = append(rules, custom...)
	rules = append(rules, DefaultRules()...)
	return &Detector{rules: rules}
}

// Classify returns the label of the first matching rule, or General.
// Matching is case-insensitive substring search.
func (d *Detector) Classify(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range d.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Name
			}
		}
	}
	return General
}

// ClassifySession labels a session from the text samples of its first
// few events. Sessions with no usable text come out as General.
func (d *Detector) ClassifySession(s *model.Session) string {
	var sb strings.Builder
	for i, ev := range s.Events {
		if i >= sampleEvents {
			break
		}
		sample := ev.TextSample
		if len(sample) > samplePerEvent {
			runes := []rune(sample)
			if len(runes) > samplePerEvent {
				sample = string(runes[:samplePerEvent])
			}
		}
		sb.WriteString(sample)
		sb.WriteByte(' ')
	}
	return d.Classify(sb.String())
}

// Count labels every session and returns label → session count. Every
// session lands in exactly one bucket.
func (d *Detector) Count(sessions []*model.Session) map[string]int64 {
	counts := make(map[string]int64)
	for _, s := range sessions {
		counts[d.ClassifySession(s)]++
	}
	return counts
}
