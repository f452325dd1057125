package hooks

import (
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/kestrelworks/scribe/internal/capture"
	"github.com/kestrelworks/scribe/internal/learning"
	"github.com/kestrelworks/scribe/internal/prd"
	"github.com/kestrelworks/scribe/internal/store"
	"github.com/kestrelworks/scribe/internal/summary"
)

var now = time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC) // a Tuesday

func testRunner(t *testing.T) *Runner {
	t.Helper()
	home := t.TempDir()
	if err := store.Init(home, false); err != nil {
		t.Fatal(err)
	}
	global, err := store.Load(home)
	if err != nil {
		t.Fatal(err)
	}
	project, err := store.OpenProject(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &Runner{
		Global:    global,
		Project:   project,
		Capture:   capture.New(project, global.Config.Capture),
		PRDs:      prd.NewManager(project),
		Learnings: learning.NewLog(global),
		Summaries: summary.NewManager(project, global),
		Log:       log.New(io.Discard),
		Now:       func() time.Time { return now },
	}
}

func TestReadPayload(t *testing.T) {
	p, err := ReadPayload(strings.NewReader(`{"prompt":"hi","cwd":"/tmp","source":"startup"}`))
	if err != nil {
		t.Fatal(err)
	}
	if p.Prompt != "hi" || p.Source != "startup" {
		t.Errorf("payload = %+v", p)
	}
	if _, err := ReadPayload(strings.NewReader("not json")); err == nil {
		t.Error("malformed payload should error")
	}
}

func TestPromptFoldsSignalsIntoPRD(t *testing.T) {
	r := testRunner(t)

	if err := r.Prompt(Payload{Prompt: "We need to add rate limiting to the public API"}); err != nil {
		t.Fatal(err)
	}

	doc, err := r.PRDs.Load("general")
	if err != nil {
		t.Fatalf("PRD should have been created: %v", err)
	}
	if len(doc.Requirements) != 1 || !strings.Contains(doc.Requirements[0].Text, "rate limiting") {
		t.Errorf("requirements = %+v", doc.Requirements)
	}
	var refs int
	for _, day := range doc.SessionLog {
		for _, e := range day.Entries {
			if e.PromptRef != "" {
				refs++
			}
		}
	}
	if refs != 1 {
		t.Errorf("session log should reference the captured prompt, got %d refs", refs)
	}
}

func TestPromptDuplicateIsDropped(t *testing.T) {
	r := testRunner(t)
	text := "We need to add rate limiting to the public API"

	r.Prompt(Payload{Prompt: text})
	r.Prompt(Payload{Prompt: text})

	doc, _ := r.PRDs.Load("general")
	if len(doc.Requirements) != 1 {
		t.Errorf("duplicate prompt must not duplicate requirements: %+v", doc.Requirements)
	}
	content, _ := store.ReadFile(r.Project.PromptFile(now))
	if got := strings.Count(content, "## ["); got != 1 {
		t.Errorf("duplicate prompt must not re-append, got %d entries", got)
	}
}

func TestPromptRecordsLearning(t *testing.T) {
	r := testRunner(t)

	if err := r.Prompt(Payload{Prompt: "no, don't use tabs in this repo"}); err != nil {
		t.Fatal(err)
	}
	content, ok := store.ReadFile(r.Global.DailyFile(now))
	if !ok || !strings.Contains(content, "## [Correction]") {
		t.Errorf("learning log missing correction:\n%s", content)
	}
}

func TestStopSweepIsIdempotent(t *testing.T) {
	r := testRunner(t)
	p := Payload{
		Summary: "Added the endpoint.",
		Prompts: []string{"we need to add pagination", "we need to add pagination"},
	}
	if err := r.Stop(p); err != nil {
		t.Fatal(err)
	}
	if err := r.Stop(p); err != nil {
		t.Fatal(err)
	}

	doc, err := r.PRDs.Load("general")
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Requirements) != 1 {
		t.Errorf("sweep should dedupe, got %+v", doc.Requirements)
	}
	content, _ := store.ReadFile(r.Project.PromptFile(now))
	if !strings.Contains(content, "**Response") {
		t.Errorf("response summary missing:\n%s", content)
	}
}

func TestSessionStartContext(t *testing.T) {
	r := testRunner(t)
	r.Prompt(Payload{Prompt: "we need to add pagination for the billing feature"})

	// a question stale past the threshold
	doc, _ := r.PRDs.Ensure("billing", now)
	doc.AddQuestion("Should invoices be immutable?", now.AddDate(0, 0, -10))
	r.PRDs.Save(doc)

	ctx, err := r.SessionStart(Payload{Source: "startup"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<scribe-context>",
		"</scribe-context>",
		"Billing",
		"Stale Questions",
		"Should invoices be immutable? (10 days old)",
		"## Recent Conversations",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}
}

func TestSessionStartCompactVariant(t *testing.T) {
	r := testRunner(t)
	r.Prompt(Payload{Prompt: "we need to add pagination"})

	full, _ := r.SessionStart(Payload{Source: "startup"})
	compact, _ := r.SessionStart(Payload{Source: "compact"})

	if !strings.Contains(compact, "<scribe-context>") {
		t.Error("compact context missing wrapper")
	}
	if strings.Contains(compact, "## Recent Conversations") {
		t.Error("compact context should not carry conversations")
	}
	if len(compact) >= len(full) {
		t.Errorf("compact context should be smaller: %d vs %d", len(compact), len(full))
	}
}

func TestClipKeepsValidUTF8(t *testing.T) {
	s := strings.Repeat("日", 60)
	got := clip(s, 50)
	if !utf8.ValidString(got) {
		t.Errorf("clip split a rune: %q", got)
	}
	if got != strings.Repeat("日", 50)+"..." {
		t.Errorf("clip = %q", got)
	}
	if short := clip("abc", 50); short != "abc" {
		t.Errorf("short input must pass through, got %q", short)
	}
}
