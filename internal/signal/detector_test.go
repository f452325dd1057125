package signal

import (
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

var testDay = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func kinds(signals []Signal) []Kind {
	var out []Kind
	for _, s := range signals {
		out = append(out, s.Kind)
	}
	return out
}

func findKind(t *testing.T, signals []Signal, kind Kind) Signal {
	t.Helper()
	for _, s := range signals {
		if s.Kind == kind {
			return s
		}
	}
	t.Fatalf("no %s signal in %v", kind, kinds(signals))
	return Signal{}
}

func TestDetectDeterministic(t *testing.T) {
	text := "Let's use JWT for auth, it's stateless and scales better"
	a := Detect(text, testDay)
	b := Detect(text, testDay)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("detection not deterministic:\n%v\n%v", a, b)
	}
}

func TestDetectDecisionWithRationale(t *testing.T) {
	signals := Detect("Let's use JWT for auth, it's stateless and scales better", testDay)
	if len(signals) != 1 {
		t.Fatalf("expected exactly one signal, got %v", kinds(signals))
	}
	d := findKind(t, signals, KindDecision)
	if !strings.Contains(d.Summary, "JWT") {
		t.Errorf("decision summary should keep the core decision, got %q", d.Summary)
	}
	if !strings.Contains(strings.ToLower(d.Rationale), "stateless") {
		t.Errorf("rationale should carry the justification clause, got %q", d.Rationale)
	}
}

func TestDetectSingleQuestion(t *testing.T) {
	signals := Detect("Should we support magic link login?", testDay)
	if len(signals) != 1 {
		t.Fatalf("expected exactly one signal, got %v", kinds(signals))
	}
	q := findKind(t, signals, KindQuestion)
	if q.Summary != "Should we support magic link login?" {
		t.Errorf("question text = %q", q.Summary)
	}
}

func TestDetectCompoundSentence(t *testing.T) {
	signals := Detect("Let's use JWT - should we also support refresh tokens?", testDay)
	findKind(t, signals, KindDecision)
	findKind(t, signals, KindQuestion)
}

func TestDetectRequirement(t *testing.T) {
	signals := Detect("We need to add rate limiting to the public API", testDay)
	r := findKind(t, signals, KindRequirement)
	if !strings.Contains(r.Summary, "rate limiting") {
		t.Errorf("requirement summary = %q", r.Summary)
	}
}

func TestDetectBugAsRequirement(t *testing.T) {
	signals := Detect("the login page crashes when I click submit", testDay)
	if len(signals) != 1 {
		t.Fatalf("expected exactly one signal, got %v", kinds(signals))
	}
	findKind(t, signals, KindRequirement)
}

func TestDetectConstraint(t *testing.T) {
	signals := Detect("Responses must be under 200ms at the 95th percentile", testDay)
	findKind(t, signals, KindConstraint)
}

func TestDetectEmpty(t *testing.T) {
	if got := Detect("", testDay); got != nil {
		t.Errorf("empty text should yield nil, got %v", got)
	}
	if got := Detect("   \n\t", testDay); got != nil {
		t.Errorf("whitespace text should yield nil, got %v", got)
	}
}

// Pattern matching over short text is intentionally literal: a lone trigger
// word classifies even without surrounding context. Pinned, not fixed.
func TestDetectShortTextMatchesLiterally(t *testing.T) {
	signals := Detect("cannot", testDay)
	if len(signals) != 1 || signals[0].Kind != KindConstraint {
		t.Errorf("lone trigger word should classify as constraint, got %v", kinds(signals))
	}
}

func TestDetectDateStamped(t *testing.T) {
	signals := Detect("we need to add pagination", testDay)
	if len(signals) == 0 || !signals[0].Date.Equal(testDay) {
		t.Errorf("signals should carry the caller's date")
	}
}

func TestDetectLearning(t *testing.T) {
	cases := []struct {
		text string
		kind LearningKind
		ok   bool
	}{
		{"no, don't use tabs in this repo", LearningCorrection, true},
		{"actually, the config lives in etc/ not conf/", LearningCorrection, true},
		{"remember: the API rate limit is 60 req/min", LearningInsight, true},
		{"til: sqlite has a write-ahead log mode", LearningInsight, true},
		{"always use prepared statements here", LearningDecision, true},
		{"from now on run the linter before committing", LearningDecision, true},
		{"add a logout button", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		kind, phrase, ok := DetectLearning(tc.text)
		if ok != tc.ok {
			t.Errorf("DetectLearning(%q) ok = %v, want %v", tc.text, ok, tc.ok)
			continue
		}
		if ok && kind != tc.kind {
			t.Errorf("DetectLearning(%q) kind = %s, want %s", tc.text, kind, tc.kind)
		}
		if ok && phrase == "" {
			t.Errorf("DetectLearning(%q) returned empty phrase", tc.text)
		}
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	s := "we need to " + strings.Repeat("é", 120)
	got := truncate(s, 100)
	if !utf8.ValidString(got) {
		t.Errorf("truncate split a rune: %q", got)
	}
	if utf8.RuneCountInString(got) != 100 {
		t.Errorf("rune count = %d, want 100", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis: %q", got)
	}
	for _, sig := range Detect(s, testDay) {
		if !utf8.ValidString(sig.Summary) {
			t.Errorf("detected summary is invalid UTF-8: %q", sig.Summary)
		}
	}
}
