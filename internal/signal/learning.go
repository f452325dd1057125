package signal

import (
	"regexp"
	"strings"
)

// LearningKind classifies an entry in the global daily learning log.
type LearningKind string

const (
	LearningCorrection LearningKind = "Correction"
	LearningInsight    LearningKind = "Learning"
	LearningDecision   LearningKind = "Decision"
)

// Learning-log detection is a separate pipeline from PRD signal detection:
// corrections and durable insights go to the global daily log regardless of
// which project the prompt belongs to.
var learningPatterns = []struct {
	kind    LearningKind
	pattern *regexp.Regexp
}{
	{LearningCorrection, regexp.MustCompile(`(?i)\bno,?\s+don't\b`)},
	{LearningCorrection, regexp.MustCompile(`(?i)\bdon't\s+do\b`)},
	{LearningCorrection, regexp.MustCompile(`(?i)\bdon't\s+use\b`)},
	{LearningCorrection, regexp.MustCompile(`(?i)\bthat's\s+(wrong|not\s+right)\b`)},
	{LearningCorrection, regexp.MustCompile(`(?i)\bnot\s+like\s+that\b`)},
	{LearningCorrection, regexp.MustCompile(`(?i)\bi\s+meant\b`)},
	{LearningCorrection, regexp.MustCompile(`(?i)\bstop\s+(doing|using)\b`)},
	{LearningCorrection, regexp.MustCompile(`(?i)^actually[,\s]`)},
	{LearningInsight, regexp.MustCompile(`(?i)^remember:`)},
	{LearningInsight, regexp.MustCompile(`(?i)^note:`)},
	{LearningInsight, regexp.MustCompile(`(?i)^til:`)},
	{LearningInsight, regexp.MustCompile(`(?i)\bturns\s+out\b`)},
	{LearningInsight, regexp.MustCompile(`(?i)\blearned\s+that\b`)},
	{LearningInsight, regexp.MustCompile(`(?i)\bkeep\s+in\s+mind\b`)},
	{LearningDecision, regexp.MustCompile(`(?i)\balways\s+use\b`)},
	{LearningDecision, regexp.MustCompile(`(?i)\bnever\s+use\b`)},
	{LearningDecision, regexp.MustCompile(`(?i)\bfrom\s+now\s+on\b`)},
	{LearningDecision, regexp.MustCompile(`(?i)\bgoing\s+forward\b`)},
}

// DetectLearning reports whether text carries a learning-log signal, and if
// so which kind and which phrase triggered it.
func DetectLearning(text string) (LearningKind, string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", "", false
	}
	for _, lp := range learningPatterns {
		if m := lp.pattern.FindString(trimmed); m != "" {
			return lp.kind, strings.TrimSpace(m), true
		}
	}
	return "", "", false
}
