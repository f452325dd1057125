// Package prd owns the structured markdown PRD documents: the document
// model, the render/parse round-trip, and the mutation operations that fold
// detected signals into a feature's PRD.
package prd

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Requirement is one checkbox item in the Requirements section.
type Requirement struct {
	Text string
	Done bool
}

// Decision is one row of the Decisions table.
type Decision struct {
	Date      string // YYYY-MM-DD
	Decision  string
	Rationale string
}

// Question is one open question with the date it was asked.
type Question struct {
	Text  string
	Asked string // YYYY-MM-DD
}

// PullRequest is one row of the Pull Requests table.
type PullRequest struct {
	Number       int
	URL          string
	Branch       string
	Status       string // Open, Merged, Closed
	Requirements string // short comma-joined list
}

// SessionEntry is one line under a session-log day heading.
type SessionEntry struct {
	Text      string
	PromptRef string // prompts/YYYY-MM-DD.md#LNN, empty when unreferenced
}

// SessionDay groups session-log entries under a date heading.
type SessionDay struct {
	Date    string // YYYY-MM-DD
	Entries []SessionEntry
}

// Document is the parsed form of a PRD markdown file. Sections render in a
// fixed order so that documents diff cleanly and Parse(Render(d)) returns a
// structurally equal document.
type Document struct {
	Slug         string
	Title        string
	Overview     string
	Requirements []Requirement
	Decisions    []Decision
	Constraints  []string
	Questions    []Question
	RelatedFiles []string
	PullRequests []PullRequest
	SessionLog   []SessionDay
}

const (
	noConstraints = "- (No constraints defined yet)"
	noQuestions   = "- (No open questions)"
	noFiles       = "- (No files tracked yet)"

	decisionsHeader = "| Date | Decision | Rationale |\n|------|----------|-----------|"
	prTableHeader   = "| PR | Branch | Status | Requirements Addressed |\n|----|--------|--------|------------------------|"
)

var (
	titleRe      = regexp.MustCompile(`(?m)^# (.+)$`)
	sectionRe    = regexp.MustCompile(`(?m)^## `)
	checkboxRe   = regexp.MustCompile(`^- \[([ x])\] (.+)$`)
	decisionRe   = regexp.MustCompile(`^\| (\d{4}-\d{2}-\d{2}) \| ([^|]*) \| ([^|]*) \|$`)
	questionRe   = regexp.MustCompile(`^- (.+?)(?: \*\(asked (\d{4}-\d{2}-\d{2})\)\*)?$`)
	fileRe       = regexp.MustCompile("^- `(.+)`$")
	prRowRe      = regexp.MustCompile(`^\| \[#(\d+)\]\(([^)]*)\) \| ` + "`([^`]*)`" + ` \| ([^|]*) \| ([^|]*) \|$`)
	dayHeadRe    = regexp.MustCompile(`^### (\d{4}-\d{2}-\d{2})$`)
	logEntryRe   = regexp.MustCompile(`^- (.*?)(?: \(\[prompt\]\(([^)]+)\)\))?$`)
	titleWordSep = regexp.MustCompile(`[-_]+`)
)

// TitleFromSlug formats a slug as a display title ("auth-system" -> "Auth System").
func TitleFromSlug(slug string) string {
	words := titleWordSep.Split(slug, -1)
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// New returns an empty document for a slug.
func New(slug string) *Document {
	title := TitleFromSlug(slug)
	return &Document{
		Slug:     slug,
		Title:    title,
		Overview: fmt.Sprintf("Documentation for %s.", title),
	}
}

// Parse reads a PRD markdown document. Sections it cannot make sense of
// parse as empty rather than failing: PRDs are hand-editable and a stray
// edit must never lock the document out of the pipeline.
func Parse(slug, content string) *Document {
	doc := &Document{Slug: slug, Title: TitleFromSlug(slug)}
	if m := titleRe.FindStringSubmatch(content); m != nil {
		doc.Title = strings.TrimSpace(m[1])
	}

	for name, body := range splitSections(content) {
		switch name {
		case "Overview":
			doc.Overview = strings.TrimSpace(body)
		case "Requirements":
			doc.Requirements = parseRequirements(body)
		case "Decisions":
			doc.Decisions = parseDecisions(body)
		case "Constraints":
			doc.Constraints = parseBullets(body, "(No constraints", nil)
		case "Open Questions":
			doc.Questions = parseQuestions(body)
		case "Related Files":
			doc.RelatedFiles = parseBullets(body, "(No files", fileRe)
		case "Pull Requests":
			doc.PullRequests = parsePullRequests(body)
		case "Session Log":
			doc.SessionLog = parseSessionLog(body)
		}
	}
	return doc
}

// splitSections maps "## Heading" names to their body text.
func splitSections(content string) map[string]string {
	out := map[string]string{}
	locs := sectionRe.FindAllStringIndex(content, -1)
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := content[loc[1]:end]
		nl := strings.IndexByte(block, '\n')
		if nl < 0 {
			out[strings.TrimSpace(block)] = ""
			continue
		}
		out[strings.TrimSpace(block[:nl])] = block[nl+1:]
	}
	return out
}

func parseRequirements(body string) []Requirement {
	var out []Requirement
	for _, line := range strings.Split(body, "\n") {
		if m := checkboxRe.FindStringSubmatch(strings.TrimRight(line, " ")); m != nil {
			out = append(out, Requirement{Text: strings.TrimSpace(m[2]), Done: m[1] == "x"})
		}
	}
	return out
}

func parseDecisions(body string) []Decision {
	var out []Decision
	for _, line := range strings.Split(body, "\n") {
		if m := decisionRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			out = append(out, Decision{
				Date:      m[1],
				Decision:  strings.TrimSpace(m[2]),
				Rationale: strings.TrimSpace(m[3]),
			})
		}
	}
	return out
}

func parseQuestions(body string) []Question {
	var out []Question
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, " ")
		if !strings.HasPrefix(line, "- ") || strings.Contains(line, "(No open questions") {
			continue
		}
		if m := questionRe.FindStringSubmatch(line); m != nil {
			out = append(out, Question{Text: strings.TrimSpace(m[1]), Asked: m[2]})
		}
	}
	return out
}

func parseBullets(body, placeholder string, re *regexp.Regexp) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, " ")
		if !strings.HasPrefix(line, "- ") || strings.Contains(line, placeholder) {
			continue
		}
		if re != nil {
			if m := re.FindStringSubmatch(line); m != nil {
				out = append(out, m[1])
			}
			continue
		}
		out = append(out, strings.TrimSpace(line[2:]))
	}
	return out
}

func parsePullRequests(body string) []PullRequest {
	var out []PullRequest
	for _, line := range strings.Split(body, "\n") {
		if m := prRowRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			n, _ := strconv.Atoi(m[1])
			out = append(out, PullRequest{
				Number:       n,
				URL:          m[2],
				Branch:       m[3],
				Status:       strings.TrimSpace(m[4]),
				Requirements: strings.TrimSpace(m[5]),
			})
		}
	}
	return out
}

func parseSessionLog(body string) []SessionDay {
	var out []SessionDay
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, " ")
		if m := dayHeadRe.FindStringSubmatch(line); m != nil {
			out = append(out, SessionDay{Date: m[1]})
			continue
		}
		if len(out) == 0 || !strings.HasPrefix(line, "- ") {
			continue
		}
		if m := logEntryRe.FindStringSubmatch(line); m != nil {
			day := &out[len(out)-1]
			day.Entries = append(day.Entries, SessionEntry{Text: m[1], PromptRef: m[2]})
		}
	}
	return out
}

// Render writes the document back to markdown in the fixed section order.
func (d *Document) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Title)

	fmt.Fprintf(&b, "## Overview\n%s\n\n", d.Overview)

	b.WriteString("## Requirements\n")
	for _, r := range d.Requirements {
		mark := " "
		if r.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", mark, r.Text)
	}
	b.WriteString("\n")

	b.WriteString("## Decisions\n")
	b.WriteString(decisionsHeader + "\n")
	for _, dec := range d.Decisions {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", dec.Date, sanitizeCell(dec.Decision), sanitizeCell(dec.Rationale))
	}
	b.WriteString("\n")

	b.WriteString("## Constraints\n")
	if len(d.Constraints) == 0 {
		b.WriteString(noConstraints + "\n")
	}
	for _, c := range d.Constraints {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\n")

	b.WriteString("## Open Questions\n")
	if len(d.Questions) == 0 {
		b.WriteString(noQuestions + "\n")
	}
	for _, q := range d.Questions {
		if q.Asked != "" {
			fmt.Fprintf(&b, "- %s *(asked %s)*\n", q.Text, q.Asked)
		} else {
			fmt.Fprintf(&b, "- %s\n", q.Text)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Related Files\n")
	if len(d.RelatedFiles) == 0 {
		b.WriteString(noFiles + "\n")
	}
	for _, f := range d.RelatedFiles {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	b.WriteString("\n")

	b.WriteString("## Pull Requests\n")
	b.WriteString(prTableHeader + "\n")
	for _, pr := range d.PullRequests {
		fmt.Fprintf(&b, "| [#%d](%s) | `%s` | %s | %s |\n",
			pr.Number, pr.URL, pr.Branch, pr.Status, sanitizeCell(pr.Requirements))
	}
	b.WriteString("\n")

	b.WriteString("## Session Log\n")
	for i, day := range d.SessionLog {
		fmt.Fprintf(&b, "### %s\n", day.Date)
		for _, e := range day.Entries {
			if e.PromptRef != "" {
				fmt.Fprintf(&b, "- %s ([prompt](%s))\n", e.Text, e.PromptRef)
			} else {
				fmt.Fprintf(&b, "- %s\n", e.Text)
			}
		}
		if i < len(d.SessionLog)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// sanitizeCell keeps table cells on one row.
func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "/")
	return strings.ReplaceAll(s, "\n", " ")
}

// sanitizeLine collapses text onto a single line for the list-item sections.
// Requirements, constraints, questions and session entries render as one-line
// forms; an embedded newline would truncate them on the next Parse.
func sanitizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
