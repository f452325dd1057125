package prd

import (
	"path"
	"regexp"
	"strings"

	"github.com/kestrelworks/scribe/internal/store"
)

// Feature detection maps prompts, file paths, and branch names onto PRD
// slugs. Path rules come from config and are an ordered list: the longest
// matching prefix wins, with the earlier rule winning a length tie.

var promptFeatureRes = []*regexp.Regexp{
	regexp.MustCompile(`working on (\w+)`),
	regexp.MustCompile(`for the (\w+) feature`),
	regexp.MustCompile(`in (\w+) module`),
	regexp.MustCompile(`(\w+) component`),
}

var branchFeatureRes = []struct {
	pattern *regexp.Regexp
	slug    string
}{
	{regexp.MustCompile(`(?i)^(?:feat|fix|feature)/auth[-_]`), "auth-system"},
	{regexp.MustCompile(`(?i)^(?:feat|fix|feature)/api[-_]`), "api-integration"},
	{regexp.MustCompile(`(?i)^(?:feat|fix|feature)/dashboard[-_]`), "user-dashboard"},
	{regexp.MustCompile(`(?i)^(?:feat|fix|feature)/user[-_]`), "user-management"},
	{regexp.MustCompile(`(?i)^(?:feat|fix|feature)/payment[-_]`), "payments"},
	{regexp.MustCompile(`(?i)^(?:feat|fix|feature)/notification[-_]`), "notifications"},
}

var branchGenericRe = regexp.MustCompile(`(?i)^(?:feat|fix|feature)/([a-z0-9-]+)`)

// FeatureFromPrompt derives a slug from explicit feature mentions in prompt
// text. Falls back to "general".
func FeatureFromPrompt(text string) string {
	lower := strings.ToLower(text)
	for _, re := range promptFeatureRes {
		if m := re.FindStringSubmatch(lower); m != nil {
			return m[1]
		}
	}
	return "general"
}

// FeatureFromPaths resolves a slug from modified file paths using the
// configured path-prefix rules (longest prefix wins, first configured on
// ties), then by first significant src/ directory. Returns "" when nothing
// matches.
func FeatureFromPaths(paths []string, rules []store.FeatureRule) string {
	best, slug := 0, ""
	for _, p := range paths {
		for _, rule := range rules {
			if strings.Contains(p, rule.Prefix) && len(rule.Prefix) > best {
				best, slug = len(rule.Prefix), rule.Slug
			}
		}
	}
	if slug != "" {
		return slug
	}
	for _, p := range paths {
		parts := strings.Split(path.Clean(p), "/")
		if len(parts) > 1 && parts[0] == "src" {
			return strings.ReplaceAll(parts[1], "_", "-")
		}
	}
	return ""
}

// FeatureFromBranch resolves a slug from a branch name, first via the known
// branch patterns, then from the generic feat|fix|feature/<name> form.
// Returns "" when the branch carries no feature hint.
func FeatureFromBranch(branch string) string {
	for _, bp := range branchFeatureRes {
		if bp.pattern.MatchString(branch) {
			return bp.slug
		}
	}
	if m := branchGenericRe.FindStringSubmatch(branch); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}
