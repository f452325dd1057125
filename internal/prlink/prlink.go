// Package prlink maintains the branch-to-PRD requirement mappings, completes
// requirements when branches merge, and renders PR-description context from
// the linked PRD.
package prlink

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kestrelworks/scribe/internal/prd"
	"github.com/kestrelworks/scribe/internal/store"
)

var (
	// ErrNotFound reports a branch with no recorded mapping.
	ErrNotFound = errors.New("branch not linked")
	// ErrAmbiguousFeature reports that no single PRD could be resolved for a
	// branch. The caller must ask instead of guessing.
	ErrAmbiguousFeature = errors.New("ambiguous feature")
)

// Mapping links a branch to the PRD requirements it addresses.
type Mapping struct {
	PRD          string   `json:"prd"`
	Requirements []string `json:"requirements"`
	Created      string   `json:"created"`
	Merged       bool     `json:"merged"`
	MergedAt     string   `json:"merged_at,omitempty"`
}

// Linker reads and writes pr-mappings.json for one project.
type Linker struct {
	Project *store.ProjectStore
	PRDs    *prd.Manager
}

func New(p *store.ProjectStore) *Linker {
	return &Linker{Project: p, PRDs: prd.NewManager(p)}
}

func (l *Linker) loadMappings() map[string]Mapping {
	m := map[string]Mapping{}
	store.ReadJSON(l.Project.PRMappingsPath(), &m)
	return m
}

func (l *Linker) saveMappings(m map[string]Mapping) error {
	return store.WriteJSON(l.Project.PRMappingsPath(), m)
}

// Get returns the mapping for a branch, or ErrNotFound.
func (l *Linker) Get(branch string) (Mapping, error) {
	m, ok := l.loadMappings()[branch]
	if !ok {
		return Mapping{}, fmt.Errorf("%q: %w", branch, ErrNotFound)
	}
	return m, nil
}

// Link records that a branch addresses the given requirements of a PRD.
func (l *Linker) Link(branch, slug string, requirements []string, now time.Time) error {
	m := l.loadMappings()
	m[branch] = Mapping{
		PRD:          slug,
		Requirements: requirements,
		Created:      now.Format(time.RFC3339),
	}
	return l.saveMappings(m)
}

// ResolveFeature finds the PRD slug for a branch: branch-name patterns
// first, then the modified-file rules. When neither resolves and more than
// one PRD exists, the choice is ambiguous and the caller must be asked.
func (l *Linker) ResolveFeature(branch string, modifiedFiles []string, rules []store.FeatureRule) (string, error) {
	if slug := prd.FeatureFromBranch(branch); slug != "" {
		return slug, nil
	}
	if slug := prd.FeatureFromPaths(modifiedFiles, rules); slug != "" {
		return slug, nil
	}
	slugs := l.Project.ListPRDs()
	switch len(slugs) {
	case 0:
		return "", fmt.Errorf("no PRDs exist: %w", ErrNotFound)
	case 1:
		return slugs[0], nil
	default:
		return "", fmt.Errorf("branch %q matches none of %d PRDs: %w", branch, len(slugs), ErrAmbiguousFeature)
	}
}

// CompleteMerged marks each mapped requirement done in the PRD and flips the
// mapping to merged. Returns the requirements that changed state. A branch
// with no mapping is ErrNotFound; a mapping already merged is a no-op.
func (l *Linker) CompleteMerged(branch string, now time.Time) ([]string, error) {
	mappings := l.loadMappings()
	m, ok := mappings[branch]
	if !ok {
		return nil, fmt.Errorf("%q: %w", branch, ErrNotFound)
	}
	if m.Merged {
		return nil, nil
	}

	doc, err := l.PRDs.Load(m.PRD)
	if err != nil {
		return nil, err
	}
	var done []string
	for _, req := range m.Requirements {
		if err := doc.MarkDone(req); err == nil {
			done = append(done, req)
		}
	}
	if len(done) > 0 {
		if err := l.PRDs.Save(doc); err != nil {
			return nil, err
		}
	}

	m.Merged = true
	m.MergedAt = now.Format(time.RFC3339)
	mappings[branch] = m
	if err := l.saveMappings(mappings); err != nil {
		return done, err
	}
	return done, nil
}

// AddPRToDoc writes (or updates) the PR row in the linked PRD's table.
func (l *Linker) AddPRToDoc(slug string, pr prd.PullRequest) error {
	doc, err := l.PRDs.Load(slug)
	if err != nil {
		return err
	}
	doc.AddPullRequest(pr)
	return l.PRDs.Save(doc)
}

// RequirementsCell shortens a requirement list for the PR table cell.
func RequirementsCell(reqs []string) string {
	if len(reqs) <= 2 {
		return strings.Join(reqs, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(reqs[:2], ", "), len(reqs)-2)
}

// Context renders PR-description markdown from the linked PRD: requirements
// addressed, recent decisions, constraints considered.
func (l *Linker) Context(branch string) (string, error) {
	m, err := l.Get(branch)
	if err != nil {
		return "", err
	}
	doc, err := l.PRDs.Load(m.PRD)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("## Context from PRD\n\n")
	fmt.Fprintf(&b, "**Feature**: %s ([PRD](.scribe/prds/%s.md))\n\n", doc.Title, m.PRD)

	b.WriteString("### Requirements Addressed\n")
	for _, req := range m.Requirements {
		fmt.Fprintf(&b, "- [x] %s\n", req)
	}
	b.WriteString("\n")

	if n := len(doc.Decisions); n > 0 {
		b.WriteString("### Decisions Made\n")
		b.WriteString("| Decision | Rationale |\n|----------|-----------|\n")
		start := 0
		if n > 5 {
			start = n - 5
		}
		for _, d := range doc.Decisions[start:] {
			fmt.Fprintf(&b, "| %s | %s |\n", d.Decision, d.Rationale)
		}
		b.WriteString("\n")
	}

	if len(doc.Constraints) > 0 {
		b.WriteString("### Constraints Considered\n")
		limit := len(doc.Constraints)
		if limit > 3 {
			limit = 3
		}
		for _, c := range doc.Constraints[:limit] {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// ActiveBranches returns the branches with unmerged mappings.
func (l *Linker) ActiveBranches() []string {
	var out []string
	for branch, m := range l.loadMappings() {
		if !m.Merged {
			out = append(out, branch)
		}
	}
	return out
}

// CurrentBranch asks git for the checked-out branch. Empty outside a repo.
func CurrentBranch(projectPath string) string {
	out, err := gitOutput(projectPath, "branch", "--show-current")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// ModifiedFiles lists files changed against main or master.
func ModifiedFiles(projectPath string) []string {
	for _, base := range []string{"main", "master"} {
		out, err := gitOutput(projectPath, "diff", base, "--name-only")
		if err != nil || strings.TrimSpace(out) == "" {
			continue
		}
		return strings.Split(strings.TrimSpace(out), "\n")
	}
	return nil
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return string(out), err
}
