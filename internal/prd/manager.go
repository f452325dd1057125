package prd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/kestrelworks/scribe/internal/store"
)

// ErrNotFound reports a missing PRD or a requirement that no PRD line matches.
var ErrNotFound = errors.New("not found")

// Manager loads, mutates, and writes PRD documents under a project store.
type Manager struct {
	Project *store.ProjectStore
}

func NewManager(p *store.ProjectStore) *Manager {
	return &Manager{Project: p}
}

// Load parses the PRD for a slug. Returns ErrNotFound when the file is absent.
func (m *Manager) Load(slug string) (*Document, error) {
	content, ok := store.ReadFile(m.Project.PRDFile(slug))
	if !ok {
		return nil, fmt.Errorf("prd %q: %w", slug, ErrNotFound)
	}
	return Parse(slug, content), nil
}

// Save renders and atomically writes a document.
func (m *Manager) Save(doc *Document) error {
	return store.WriteFileAtomic(m.Project.PRDFile(doc.Slug), []byte(doc.Render()))
}

// Ensure loads the PRD for a slug, creating it with a seeded session log
// entry when it does not exist yet.
func (m *Manager) Ensure(slug string, today time.Time) (*Document, error) {
	doc, err := m.Load(slug)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	doc = New(slug)
	doc.SessionLog = []SessionDay{{
		Date:    today.Format("2006-01-02"),
		Entries: []SessionEntry{{Text: "PRD created"}},
	}}
	if err := m.Save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// normalize folds case, punctuation, and whitespace for dedupe comparisons,
// so "Add rate limiting!" and "add rate limiting" count as the same item.
func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// AddRequirement appends an open requirement unless a normalized-equal one
// already exists. Reports whether the document changed.
func (d *Document) AddRequirement(text string) bool {
	text = sanitizeLine(text)
	key := normalize(text)
	for _, r := range d.Requirements {
		if normalize(r.Text) == key {
			return false
		}
	}
	d.Requirements = append(d.Requirements, Requirement{Text: text})
	return true
}

// MarkDone flips a requirement to done by normalized equality. A requirement
// that is already done is a no-op; an unknown requirement is ErrNotFound.
func (d *Document) MarkDone(text string) error {
	key := normalize(text)
	for i, r := range d.Requirements {
		if normalize(r.Text) == key {
			d.Requirements[i].Done = true
			return nil
		}
	}
	return fmt.Errorf("requirement %q: %w", text, ErrNotFound)
}

// AddDecision appends a decision row unless an existing decision contains the
// same text. A decision also resolves any open question it contradicts:
// questions whose text appears in the decision (or vice versa) are removed.
func (d *Document) AddDecision(decision, rationale string, date time.Time) bool {
	key := normalize(decision)
	for _, dec := range d.Decisions {
		if normalize(dec.Decision) == key {
			return false
		}
	}
	if rationale == "" {
		rationale = "See discussion"
	}
	d.Decisions = append(d.Decisions, Decision{
		Date:      date.Format("2006-01-02"),
		Decision:  decision,
		Rationale: rationale,
	})
	d.resolveContradicted(decision)
	return true
}

func (d *Document) resolveContradicted(decision string) {
	decLower := strings.ToLower(decision)
	kept := d.Questions[:0]
	for _, q := range d.Questions {
		qLower := strings.ToLower(q.Text)
		if strings.Contains(decLower, strings.TrimSuffix(qLower, "?")) ||
			strings.Contains(qLower, decLower) {
			continue
		}
		kept = append(kept, q)
	}
	d.Questions = kept
}

// AddConstraint appends a constraint with normalized dedupe.
func (d *Document) AddConstraint(text string) bool {
	text = sanitizeLine(text)
	key := normalize(text)
	for _, c := range d.Constraints {
		if normalize(c) == key {
			return false
		}
	}
	d.Constraints = append(d.Constraints, text)
	return true
}

// AddQuestion appends an open question stamped with the asked date, with
// normalized dedupe.
func (d *Document) AddQuestion(text string, asked time.Time) bool {
	text = sanitizeLine(text)
	key := normalize(text)
	for _, q := range d.Questions {
		if normalize(q.Text) == key {
			return false
		}
	}
	d.Questions = append(d.Questions, Question{Text: text, Asked: asked.Format("2006-01-02")})
	return true
}

// ResolveQuestion removes open questions containing the given substring,
// case-insensitively. Reports how many were removed.
func (d *Document) ResolveQuestion(substring string) int {
	sub := strings.ToLower(substring)
	kept := d.Questions[:0]
	removed := 0
	for _, q := range d.Questions {
		if strings.Contains(strings.ToLower(q.Text), sub) {
			removed++
			continue
		}
		kept = append(kept, q)
	}
	d.Questions = kept
	return removed
}

// AddRelatedFile tracks a file path, deduped exactly.
func (d *Document) AddRelatedFile(path string) bool {
	for _, f := range d.RelatedFiles {
		if f == path {
			return false
		}
	}
	d.RelatedFiles = append(d.RelatedFiles, path)
	return true
}

// AddPullRequest inserts a PR row, or updates the existing row with the same
// number.
func (d *Document) AddPullRequest(pr PullRequest) {
	for i, existing := range d.PullRequests {
		if existing.Number == pr.Number {
			d.PullRequests[i] = pr
			return
		}
	}
	d.PullRequests = append(d.PullRequests, pr)
}

// AddSessionLog appends an entry under today's date heading, creating the
// heading if this is the day's first entry. Newest day first.
func (d *Document) AddSessionLog(entry, promptRef string, today time.Time) {
	date := today.Format("2006-01-02")
	e := SessionEntry{Text: sanitizeLine(entry), PromptRef: promptRef}
	for i := range d.SessionLog {
		if d.SessionLog[i].Date == date {
			d.SessionLog[i].Entries = append(d.SessionLog[i].Entries, e)
			return
		}
	}
	d.SessionLog = append([]SessionDay{{Date: date, Entries: []SessionEntry{e}}}, d.SessionLog...)
}

// StaleQuestion is an open question older than the staleness threshold.
type StaleQuestion struct {
	Slug    string
	Text    string
	Asked   string
	AgeDays int
}

// StaleQuestions returns the document's open questions older than
// thresholdDays, oldest first. Questions without a parseable asked date are
// skipped.
func StaleQuestions(doc *Document, today time.Time, thresholdDays int) []StaleQuestion {
	var out []StaleQuestion
	for _, q := range doc.Questions {
		asked, err := time.Parse("2006-01-02", q.Asked)
		if err != nil {
			continue
		}
		age := int(today.Sub(asked).Hours() / 24)
		if age > thresholdDays {
			out = append(out, StaleQuestion{Slug: doc.Slug, Text: q.Text, Asked: q.Asked, AgeDays: age})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asked < out[j].Asked })
	return out
}

// Summary holds the counts shown in status listings.
type Summary struct {
	Slug            string
	OpenReqs        int
	DoneReqs        int
	OpenQuestions   int
	Decisions       int
	LatestDecision  string
	LatestDecidedAt string
}

// Summarize computes a document's summary counts.
func Summarize(doc *Document) Summary {
	s := Summary{Slug: doc.Slug, OpenQuestions: len(doc.Questions), Decisions: len(doc.Decisions)}
	for _, r := range doc.Requirements {
		if r.Done {
			s.DoneReqs++
		} else {
			s.OpenReqs++
		}
	}
	if n := len(doc.Decisions); n > 0 {
		s.LatestDecision = doc.Decisions[n-1].Decision
		s.LatestDecidedAt = doc.Decisions[n-1].Date
	}
	return s
}
