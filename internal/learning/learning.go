// Package learning appends corrections and durable insights to the global
// daily learning log under the scribe home. Unlike PRDs, the log is
// project-independent and append-only.
package learning

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kestrelworks/scribe/internal/capture"
	"github.com/kestrelworks/scribe/internal/signal"
	"github.com/kestrelworks/scribe/internal/store"
)

type index struct {
	Hashes []string `json:"hashes"`
}

// Log owns the global daily learning files and their dedup index.
type Log struct {
	mu       sync.Mutex
	store    *store.Store
	indexCap int
}

func NewLog(s *store.Store) *Log {
	return &Log{store: s, indexCap: s.Config.Capture.IndexCap}
}

// Record appends a learning entry to the day's log unless an identical text
// was recorded before. Reports whether the entry was written.
func (l *Log) Record(kind signal.LearningKind, text, phrase string, ts time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fp := capture.Fingerprint(text)
	var idx index
	store.ReadJSON(l.store.IndexPath(), &idx)
	for _, h := range idx.Hashes {
		if h == fp {
			return false, nil
		}
	}

	path := l.store.DailyFile(ts)
	if _, ok := store.ReadFile(path); !ok {
		header := fmt.Sprintf("# Daily Learnings - %s\n\n", ts.Format("2006-01-02"))
		if err := store.WriteFileAtomic(path, []byte(header)); err != nil {
			return false, err
		}
	}

	entry := fmt.Sprintf("## [%s] %s\n\n> %s\n\n**Signal:** `%s`\n\n---\n\n",
		kind, ts.Format("15:04:05"), strings.ReplaceAll(text, "\n", "\n> "), phrase)
	if err := store.AppendFile(path, entry); err != nil {
		return false, err
	}

	idx.Hashes = append(idx.Hashes, fp)
	if n := len(idx.Hashes); n > l.indexCap {
		idx.Hashes = idx.Hashes[n-l.indexCap:]
	}
	if err := store.WriteJSON(l.store.IndexPath(), &idx); err != nil {
		return false, err
	}
	return true, nil
}

// Entry is one learning read back out of a day file.
type Entry struct {
	Kind   signal.LearningKind
	Time   string
	Text   string
	Signal string
}

var (
	entryHeadRe = regexp.MustCompile(`^## \[(\w+)\] (\d{2}:\d{2}:\d{2})$`)
	signalRe    = regexp.MustCompile("^\\*\\*Signal:\\*\\* `(.*)`$")
)

// ParseDay reads the learning entries out of a day file's content.
func ParseDay(content string) []Entry {
	var out []Entry
	var cur *Entry
	for _, line := range strings.Split(content, "\n") {
		if m := entryHeadRe.FindStringSubmatch(line); m != nil {
			out = append(out, Entry{Kind: signal.LearningKind(m[1]), Time: m[2]})
			cur = &out[len(out)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if strings.HasPrefix(line, "> ") {
			if cur.Text != "" {
				cur.Text += "\n"
			}
			cur.Text += line[2:]
			continue
		}
		if m := signalRe.FindStringSubmatch(line); m != nil {
			cur.Signal = m[1]
			continue
		}
		if line == "---" {
			cur = nil
		}
	}
	return out
}

// CountRange counts learning entries across the day files in [from, to].
func (l *Log) CountRange(from, to time.Time) int {
	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		content, ok := store.ReadFile(l.store.DailyFile(d))
		if !ok {
			continue
		}
		count += len(ParseDay(content))
	}
	return count
}
