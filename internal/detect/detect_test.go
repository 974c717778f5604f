package detect

import (
	"testing"
	"time"

	"github.com/theirongolddev/convstat/internal/model"
)

func TestClassify(t *testing.T) {
	d := New()
	tests := []struct {
		name string
		text string
		want string
	}{
		{"python by name", "help me write a Python script", "python"},
		{"python by extension", "there's a bug in main.py somewhere", "python"},
		{"javascript", "run npm install first", "javascript"},
		{"react", "the Component won't re-render", "react"},
		{"web", "center a div with css", "web"},
		{"debugging", "I need to fix this stack trace", "debugging"},
		{"data", "parse this csv export", "data"},
		{"fallback", "write a haiku about autumn", General},
		{"empty", "", General},
		{"case insensitive", "PYTHON VS RUBY", "python"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

// Rule order decides ties: "python imports break with an error" mentions
// both python and error, and python is checked first.
func TestClassify_FirstRuleWins(t *testing.T) {
	d := New()
	if got := d.Classify("python imports break with an error"); got != "python" {
		t.Errorf("Classify = %q, want python (earlier rule)", got)
	}
}

func TestClassify_CustomRulesPrecedeBuiltins(t *testing.T) {
	d := New(Rule{Name: "terraform", Keywords: []string{"terraform", "hcl"}})

	if got := d.Classify("debug my terraform plan"); got != "terraform" {
		t.Errorf("Classify = %q, want custom rule to win over debugging", got)
	}
	// Built-ins still apply when no custom rule matches.
	if got := d.Classify("npm run build"); got != "javascript" {
		t.Errorf("Classify = %q, want javascript", got)
	}
}

func sessionWithSamples(samples ...string) *model.Session {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := &model.Session{ID: "s"}
	for i, text := range samples {
		s.Events = append(s.Events, model.Event{
			SessionID: "s",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Role:      model.RoleUser,
			TextSample: text,
		})
	}
	return s
}

func TestClassifySession_UsesEarlyEventsOnly(t *testing.T) {
	d := New()

	// The python mention sits in the fourth event, past the sample
	// window, so only the earlier text counts.
	s := sessionWithSamples("hello", "write a poem", "about rivers", "now a python script")
	if got := d.ClassifySession(s); got != General {
		t.Errorf("ClassifySession = %q, want %q (late events ignored)", got, General)
	}

	s = sessionWithSamples("help with my python code", "thanks")
	if got := d.ClassifySession(s); got != "python" {
		t.Errorf("ClassifySession = %q, want python", got)
	}
}

func TestCount(t *testing.T) {
	d := New()
	sessions := []*model.Session{
		sessionWithSamples("npm trouble"),
		sessionWithSamples("python question"),
		sessionWithSamples("another python thing"),
		sessionWithSamples("just chatting"),
	}

	counts := d.Count(sessions)

	want := map[string]int64{"javascript": 1, "python": 2, General: 1}
	for label, n := range want {
		if counts[label] != n {
			t.Errorf("counts[%q] = %d, want %d", label, counts[label], n)
		}
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	if total != int64(len(sessions)) {
		t.Errorf("total labeled = %d, want %d (every session in one bucket)", total, len(sessions))
	}
}
