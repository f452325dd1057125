// Package signal classifies free-text prompts into structured intent
// signals: requirements, decisions, constraints, and questions. Detection is
// pure pattern matching over the case-folded text; it performs no I/O and
// never errors — an unmatched prompt simply yields no signals.
package signal

import (
	"regexp"
	"strings"
	"time"
)

// Kind classifies a detected signal.
type Kind string

const (
	KindRequirement Kind = "requirement"
	KindDecision    Kind = "decision"
	KindConstraint  Kind = "constraint"
	KindQuestion    Kind = "question"
)

// Signal is one classified fragment of intent extracted from a prompt.
// A single prompt can produce several signals of different kinds.
type Signal struct {
	Kind      Kind
	Text      string    // original prompt text
	Summary   string    // shortened, kind-appropriate extract
	Rationale string    // decisions only; empty when no rationale clause found
	Phrase    string    // the trigger phrase that matched
	Date      time.Time // the detection date (caller's "today")
}

var requirementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(i\s+)?need\s+to\b`),
	regexp.MustCompile(`\bshould\s+have\b`),
	regexp.MustCompile(`\bmust\s+support\b`),
	regexp.MustCompile(`\brequire[sd]?\b`),
	regexp.MustCompile(`\b(add|create|build|implement|write)\s+a\b`),
	regexp.MustCompile(`\bimplement\b`),
	regexp.MustCompile(`\b(can|could)\s+you\b`),
	regexp.MustCompile(`\bplease\s+(add|create|fix|implement|update)\b`),
	regexp.MustCompile(`\b(i|we)\s+want\s+to\b`),
	regexp.MustCompile(`\bi('d| would)\s+like\s+to\b`),
	regexp.MustCompile(`\blet's\s+(add|create|build|implement)\b`),
}

// Bug reports fold into requirements: a bug is work to be done.
var bugPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bfix\s+(this|the|a)\b`),
	regexp.MustCompile(`\bthere's\s+a\s+bug\b`),
	regexp.MustCompile(`\bbug\s+in\b`),
	regexp.MustCompile(`\bdoesn't\s+work\b`),
	regexp.MustCompile(`\bnot\s+working\b`),
	regexp.MustCompile(`\bbroken\b`),
	regexp.MustCompile(`\berror\s+when\b`),
	regexp.MustCompile(`\bfailing\b`),
	regexp.MustCompile(`\bcrashes\b`),
	regexp.MustCompile(`\bissue\s+with\b`),
}

var decisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\blet's\s+use\b`),
	regexp.MustCompile(`\bwe'll\s+(go\s+with|use)\b`),
	regexp.MustCompile(`\bdecided\s+(to|on)\b`),
	regexp.MustCompile(`\bchose\b`),
	regexp.MustCompile(`\bi'll\s+use\b`),
	regexp.MustCompile(`\bwe\s+should\s+use\b`),
	regexp.MustCompile(`\bgoing\s+with\b`),
	regexp.MustCompile(`\bprefer\s+to\b`),
	regexp.MustCompile(`\bbetter\s+to\b`),
	regexp.MustCompile(`\bmakes\s+sense\s+to\b`),
	regexp.MustCompile(`\bagreed\s+(to|on)\b`),
}

var constraintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bmust\s+be\b`),
	regexp.MustCompile(`\bcannot\b`),
	regexp.MustCompile(`\bcan't\b`),
	regexp.MustCompile(`\bshouldn't\b`),
	regexp.MustCompile(`\blimited\s+to\b`),
	regexp.MustCompile(`\bmaximum\b`),
	regexp.MustCompile(`\bminimum\b`),
	regexp.MustCompile(`\bat\s+(most|least)\b`),
	regexp.MustCompile(`\bonly\s+if\b`),
	regexp.MustCompile(`\bunless\b`),
	regexp.MustCompile(`\bno\s+more\s+than\b`),
}

var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\?\s*$`),
	regexp.MustCompile(`\bhow\s+(do|can|should)\b`),
	regexp.MustCompile(`\bwhat\s+if\b`),
	regexp.MustCompile(`\bshould\s+we\b`),
	regexp.MustCompile(`\bcan\s+we\b`),
	regexp.MustCompile(`\bwhy\s+(do|does|is|are)\b`),
}

var rationalePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bbecause\s+(.+?)(\.|$)`),
	regexp.MustCompile(`\bsince\s+(.+?)(\.|$)`),
	regexp.MustCompile(`\bto\s+(?:enable|allow|support|ensure|make)\s+(.+?)(\.|$)`),
	regexp.MustCompile(`\bit's\s+(.+?)(\.|$)`),
	regexp.MustCompile(`\bthis\s+(?:is|will|allows?|enables?)\s+(.+?)(\.|$)`),
	regexp.MustCompile(`\s[—-]\s*(.+?)(\.|$)`),
}

var rationaleSplit = regexp.MustCompile(`(?i)[,;]?\s+(because|since|it's|to enable|to allow)\b.*$`)

var innerQuestion = regexp.MustCompile(`([^.!]+\?)`)

// Detect classifies text into zero or more signals. Detection is
// deterministic: identical text and today always yield identical output.
// Categories are matched independently, so a compound sentence can produce
// both a decision and a question.
func Detect(text string, today time.Time) []Signal {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var out []Signal

	if phrase, ok := firstMatch(lower, questionPatterns); ok {
		out = append(out, Signal{
			Kind:    KindQuestion,
			Text:    text,
			Summary: extractQuestion(text),
			Phrase:  phrase,
			Date:    today,
		})
	}

	if phrase, ok := firstMatch(lower, decisionPatterns); ok {
		out = append(out, Signal{
			Kind:      KindDecision,
			Text:      text,
			Summary:   summarizeDecision(text),
			Rationale: extractRationale(lower),
			Phrase:    phrase,
			Date:      today,
		})
	}

	if phrase, ok := firstMatch(lower, constraintPatterns); ok {
		out = append(out, Signal{
			Kind:    KindConstraint,
			Text:    text,
			Summary: truncate(strings.TrimSpace(text), 100),
			Phrase:  phrase,
			Date:    today,
		})
	}

	phrase, ok := firstMatch(lower, requirementPatterns)
	if !ok {
		phrase, ok = firstMatch(lower, bugPatterns)
	}
	if ok {
		out = append(out, Signal{
			Kind:    KindRequirement,
			Text:    text,
			Summary: truncate(strings.TrimSpace(text), 100),
			Phrase:  phrase,
			Date:    today,
		})
	}

	return out
}

func firstMatch(lower string, patterns []*regexp.Regexp) (string, bool) {
	for _, p := range patterns {
		if m := p.FindString(lower); m != "" {
			return strings.TrimSpace(m), true
		}
	}
	return "", false
}

// extractRationale pulls the trailing justification clause out of a decision
// statement. Returns "" when no rationale clause is present.
func extractRationale(lower string) string {
	for _, p := range rationalePatterns {
		if m := p.FindStringSubmatch(lower); m != nil {
			r := strings.TrimSpace(m[1])
			if r != "" {
				return strings.ToUpper(r[:1]) + r[1:]
			}
		}
	}
	return ""
}

// summarizeDecision strips the rationale clause to isolate the core decision.
func summarizeDecision(text string) string {
	clean := rationaleSplit.ReplaceAllString(text, "")
	return truncate(strings.TrimSpace(clean), 80)
}

// extractQuestion returns the question sentence within text.
func extractQuestion(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return trimmed
	}
	if m := innerQuestion.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// truncate cuts on a rune boundary so multi-byte text stays valid UTF-8.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
