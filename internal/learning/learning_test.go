package learning

import (
	"strings"
	"testing"
	"time"

	"github.com/kestrelworks/scribe/internal/signal"
	"github.com/kestrelworks/scribe/internal/store"
)

var ts = time.Date(2026, 2, 10, 9, 15, 0, 0, time.UTC)

func testLog(t *testing.T) *Log {
	t.Helper()
	home := t.TempDir()
	if err := store.Init(home, false); err != nil {
		t.Fatal(err)
	}
	s, err := store.Load(home)
	if err != nil {
		t.Fatal(err)
	}
	return NewLog(s)
}

func TestRecordAndDedupe(t *testing.T) {
	l := testLog(t)

	wrote, err := l.Record(signal.LearningCorrection, "no, don't use tabs here", "no, don't", ts)
	if err != nil {
		t.Fatal(err)
	}
	if !wrote {
		t.Fatal("first record should write")
	}

	wrote, err = l.Record(signal.LearningCorrection, "No, don't use tabs  here", "no, don't", ts.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if wrote {
		t.Error("normalized duplicate should not write again")
	}

	content, _ := store.ReadFile(l.store.DailyFile(ts))
	if got := strings.Count(content, "## [Correction]"); got != 1 {
		t.Errorf("day file should hold one entry, got %d", got)
	}
}

func TestDayFileFormat(t *testing.T) {
	l := testLog(t)
	l.Record(signal.LearningInsight, "til: sqlite has a WAL mode", "til:", ts)

	content, _ := store.ReadFile(l.store.DailyFile(ts))
	if !strings.HasPrefix(content, "# Daily Learnings - 2026-02-10\n\n") {
		t.Errorf("missing header:\n%s", content)
	}
	if !strings.Contains(content, "## [Learning] 09:15:00\n\n> til: sqlite has a WAL mode\n\n**Signal:** `til:`\n\n---\n") {
		t.Errorf("entry format wrong:\n%s", content)
	}
}

func TestParseDay(t *testing.T) {
	l := testLog(t)
	l.Record(signal.LearningInsight, "til: one", "til:", ts)
	l.Record(signal.LearningDecision, "always use context timeouts", "always use", ts.Add(time.Minute))

	content, _ := store.ReadFile(l.store.DailyFile(ts))
	entries := ParseDay(content)
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != signal.LearningInsight || entries[0].Text != "til: one" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Signal != "always use" {
		t.Errorf("signal phrase = %q", entries[1].Signal)
	}
}

func TestCountRange(t *testing.T) {
	l := testLog(t)
	l.Record(signal.LearningInsight, "til: one", "til:", ts)
	l.Record(signal.LearningInsight, "til: two", "til:", ts.AddDate(0, 0, 2))

	if got := l.CountRange(ts, ts.AddDate(0, 0, 2)); got != 2 {
		t.Errorf("CountRange = %d, want 2", got)
	}
	if got := l.CountRange(ts.AddDate(0, 0, 1), ts.AddDate(0, 0, 1)); got != 0 {
		t.Errorf("empty day should count 0, got %d", got)
	}
}
