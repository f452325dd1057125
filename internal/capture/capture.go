// Package capture appends prompts to the per-day prompt logs and keeps the
// fingerprint index that makes capture idempotent: the same prompt on the
// same day always resolves to the same line reference.
package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kestrelworks/scribe/internal/store"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Fingerprint returns the first 16 hex chars of the sha256 over the
// whitespace-collapsed, lower-cased text. Stable fingerprints are what make
// re-fired hooks safe.
func Fingerprint(text string) string {
	collapsed := whitespaceRe.ReplaceAllString(strings.TrimSpace(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(collapsed))
	return hex.EncodeToString(sum[:])[:16]
}

type indexEntry struct {
	Hash string `json:"hash"`
	File string `json:"file"`
	Line int    `json:"line"`
}

type index struct {
	Entries []indexEntry `json:"entries"`
}

// Capture owns the prompt log for one project. The check-then-append pair is
// a single critical section; cross-process locking is out of scope.
type Capture struct {
	mu       sync.Mutex
	project  *store.ProjectStore
	indexCap int
}

func New(p *store.ProjectStore, cfg store.CaptureConfig) *Capture {
	limit := cfg.IndexCap
	if limit <= 0 {
		limit = store.DefaultConfig().Capture.IndexCap
	}
	return &Capture{project: p, indexCap: limit}
}

func (c *Capture) loadIndex() index {
	var idx index
	store.ReadJSON(c.project.PromptIndexPath(), &idx)
	return idx
}

func (c *Capture) saveIndex(idx index) error {
	if n := len(idx.Entries); n > c.indexCap {
		idx.Entries = idx.Entries[n-c.indexCap:]
	}
	return store.WriteJSON(c.project.PromptIndexPath(), &idx)
}

// Capture appends a prompt entry to the day's log and records its location
// in the index. A fingerprint hit returns the previously recorded reference
// without touching the log. Line numbers are assigned at append time and
// never renumbered.
func (c *Capture) Capture(text string, ts time.Time, feature string) (ref string, dup bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fp := Fingerprint(text)
	idx := c.loadIndex()
	for _, e := range idx.Entries {
		if e.Hash == fp {
			return fmt.Sprintf("%s#L%d", e.File, e.Line), true, nil
		}
	}

	day := ts.Format("2006-01-02")
	path := c.project.PromptFile(ts)
	content, ok := store.ReadFile(path)
	if !ok {
		content = fmt.Sprintf("# Prompts - %s\n\n", day)
		if err := store.WriteFileAtomic(path, []byte(content)); err != nil {
			return "", false, err
		}
	}

	line := strings.Count(content, "\n") + 1
	entry := fmt.Sprintf("## [%s] %s\n\n> %s\n\n---\n\n",
		feature, ts.Format("15:04:05"), strings.ReplaceAll(text, "\n", "\n> "))
	if err := store.AppendFile(path, entry); err != nil {
		return "", false, err
	}

	file := fmt.Sprintf("prompts/%s.md", day)
	ref = fmt.Sprintf("%s#L%d", file, line)
	idx.Entries = append(idx.Entries, indexEntry{Hash: fp, File: file, Line: line})
	if err := c.saveIndex(idx); err != nil {
		// the entry is already on disk; until the index is writable again a
		// retried capture of the same text will append a duplicate line
		return ref, false, fmt.Errorf("save prompt index: %w", err)
	}
	return ref, false, nil
}

// Seen reports whether a prompt has already been captured.
func (c *Capture) Seen(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	fp := Fingerprint(text)
	for _, e := range c.loadIndex().Entries {
		if e.Hash == fp {
			return true
		}
	}
	return false
}

// AppendResponseSummary appends a short assistant-response summary to the
// day's prompt log.
func (c *Capture) AppendResponseSummary(summary string, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.project.PromptFile(ts)
	if _, ok := store.ReadFile(path); !ok {
		header := fmt.Sprintf("# Prompts - %s\n\n", ts.Format("2006-01-02"))
		if err := store.WriteFileAtomic(path, []byte(header)); err != nil {
			return err
		}
	}
	entry := fmt.Sprintf("**Response %s:** %s\n\n---\n\n", ts.Format("15:04:05"), summary)
	return store.AppendFile(path, entry)
}

// Entry is one prompt block read back out of a day file.
type Entry struct {
	Feature string
	Time    string // HH:MM:SS
	Text    string
}

var entryHeadRe = regexp.MustCompile(`^## \[(.+)\] (\d{2}:\d{2}:\d{2})$`)

// ParseDay reads the prompt entries out of a day file's content. Response
// summaries are skipped.
func ParseDay(content string) []Entry {
	var out []Entry
	var cur *Entry
	for _, line := range strings.Split(content, "\n") {
		if m := entryHeadRe.FindStringSubmatch(line); m != nil {
			out = append(out, Entry{Feature: m[1], Time: m[2]})
			cur = &out[len(out)-1]
			continue
		}
		if cur != nil && strings.HasPrefix(line, "> ") {
			if cur.Text != "" {
				cur.Text += "\n"
			}
			cur.Text += line[2:]
		}
		if line == "---" {
			cur = nil
		}
	}
	return out
}

// Recent returns up to n of the most recent prompt entries, scanning day
// files backwards from today.
func (c *Capture) Recent(n int, today time.Time) []Entry {
	var out []Entry
	for d := 0; d < 14 && len(out) < n; d++ {
		day := today.AddDate(0, 0, -d)
		content, ok := store.ReadFile(c.project.PromptFile(day))
		if !ok {
			continue
		}
		entries := ParseDay(content)
		// newest within a day last, so walk backwards
		for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
			out = append(out, entries[i])
		}
	}
	return out
}
