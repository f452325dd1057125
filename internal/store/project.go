package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ProjectStore represents a project's .scribe directory: PRDs, daily prompt
// logs, summaries, and the keyed documents (prompt index, PR mappings,
// summary state).
type ProjectStore struct {
	ProjectPath string
	Root        string
}

// OpenProject opens (creating if needed) the .scribe directory for a project.
func OpenProject(projectPath string) (*ProjectStore, error) {
	root := filepath.Join(projectPath, ".scribe")
	for _, dir := range []string{"prds", "prompts"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, err
		}
	}
	return &ProjectStore{ProjectPath: projectPath, Root: root}, nil
}

// FindProjectRoot walks up from startDir looking for project root markers,
// by priority: .claude/ first (full walk), then .git/, then CLAUDE.md.
// Falls back to startDir when no marker is found.
func FindProjectRoot(startDir string) string {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return startDir
	}
	for _, marker := range []string{".claude", ".git", "CLAUDE.md"} {
		dir := abs
		for {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return abs
}

// Path resolves a path within the project's .scribe directory.
func (p *ProjectStore) Path(parts ...string) string {
	all := append([]string{p.Root}, parts...)
	return filepath.Join(all...)
}

// PRDFile returns the path of a PRD by slug.
func (p *ProjectStore) PRDFile(slug string) string {
	return p.Path("prds", slug+".md")
}

// PromptFile returns the path of a day's prompt log.
func (p *ProjectStore) PromptFile(day time.Time) string {
	return p.Path("prompts", day.Format("2006-01-02")+".md")
}

// PromptIndexPath returns the path of the prompt dedup index.
func (p *ProjectStore) PromptIndexPath() string {
	return p.Path("prompt-index.json")
}

// PRMappingsPath returns the path of the branch-to-PRD mappings document.
func (p *ProjectStore) PRMappingsPath() string {
	return p.Path("pr-mappings.json")
}

// SummaryFile returns the path of a cached summary for a period.
// periodType is "weekly", "monthly", or "yearly".
func (p *ProjectStore) SummaryFile(periodType, period string) string {
	return p.Path("summaries", periodType, period+".md")
}

// SummaryStatePath returns the path of the summary generation state record.
func (p *ProjectStore) SummaryStatePath() string {
	return p.Path("summary-state.json")
}

// ListPRDs lists PRD slugs, sorted.
func (p *ProjectStore) ListPRDs() []string {
	entries, err := os.ReadDir(p.Path("prds"))
	if err != nil {
		return nil
	}
	var slugs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(slugs)
	return slugs
}

// CheckProjectHealth verifies the project .scribe structure.
func CheckProjectHealth(projectPath string) []Issue {
	var issues []Issue
	root := filepath.Join(projectPath, ".scribe")
	if _, err := os.Stat(root); err != nil {
		issues = append(issues, Issue{"warning", "no .scribe directory (created on first capture)"})
		return issues
	}
	for _, dir := range []string{"prds", "prompts"} {
		p := filepath.Join(root, dir)
		info, err := os.Stat(p)
		if err != nil {
			issues = append(issues, Issue{"error", "missing directory: " + p})
		} else if !info.IsDir() {
			issues = append(issues, Issue{"error", "expected directory but found file: " + p})
		}
	}
	return issues
}
