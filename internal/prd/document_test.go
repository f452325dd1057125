package prd

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

var day = time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC)

func sampleDoc() *Document {
	return &Document{
		Slug:     "auth-system",
		Title:    "Auth System",
		Overview: "Documentation for Auth System.",
		Requirements: []Requirement{
			{Text: "Add rate limiting to the public API"},
			{Text: "Support refresh tokens", Done: true},
		},
		Decisions: []Decision{
			{Date: "2026-02-09", Decision: "Use JWT for auth", Rationale: "Stateless and scales better"},
		},
		Constraints: []string{"Responses must be under 200ms"},
		Questions: []Question{
			{Text: "Should we support magic link login?", Asked: "2026-02-08"},
		},
		RelatedFiles: []string{"src/auth/middleware.go"},
		PullRequests: []PullRequest{
			{Number: 42, URL: "https://example.com/pr/42", Branch: "feat/auth-rate-limit", Status: "Open", Requirements: "Add rate limiting to the public API"},
		},
		SessionLog: []SessionDay{
			{Date: "2026-02-10", Entries: []SessionEntry{
				{Text: "Added requirement: rate limiting", PromptRef: "prompts/2026-02-10.md#L14"},
				{Text: "PRD created"},
			}},
			{Date: "2026-02-09", Entries: []SessionEntry{{Text: "Decided: Use JWT for auth"}}},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	want := sampleDoc()
	got := Parse(want.Slug, want.Render())
	if !reflect.DeepEqual(want, got) {
		t.Errorf("round-trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestRoundTripEmptySections(t *testing.T) {
	want := New("payments")
	got := Parse("payments", want.Render())
	if got.Title != "Payments" || len(got.Requirements) != 0 || len(got.Constraints) != 0 ||
		len(got.Questions) != 0 || len(got.RelatedFiles) != 0 || len(got.PullRequests) != 0 {
		t.Errorf("empty document did not round-trip cleanly: %+v", got)
	}
}

func TestParseMalformedSectionRecovers(t *testing.T) {
	content := "# Broken\n\n## Overview\nok\n\n## Decisions\nnot a table at all\n| bad row\n\n## Requirements\n- [ ] still parses\n"
	doc := Parse("broken", content)
	if len(doc.Decisions) != 0 {
		t.Errorf("malformed decisions should parse as empty, got %v", doc.Decisions)
	}
	if len(doc.Requirements) != 1 {
		t.Errorf("well-formed sections should survive a malformed sibling, got %v", doc.Requirements)
	}
}

func TestAddRequirementDedupe(t *testing.T) {
	doc := New("auth-system")
	if !doc.AddRequirement("Add rate limiting to the public API") {
		t.Fatal("first add should report a change")
	}
	if doc.AddRequirement("add rate limiting to the public API!") {
		t.Error("normalized duplicate should not be added")
	}
	if len(doc.Requirements) != 1 {
		t.Errorf("want 1 requirement, got %d", len(doc.Requirements))
	}
}

func TestMarkDone(t *testing.T) {
	doc := New("auth-system")
	doc.AddRequirement("Support refresh tokens")

	if err := doc.MarkDone("support refresh tokens"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if !doc.Requirements[0].Done {
		t.Error("requirement not marked done")
	}
	// second call is a no-op
	if err := doc.MarkDone("Support refresh tokens"); err != nil {
		t.Errorf("marking a done requirement should be a no-op, got %v", err)
	}
	if err := doc.MarkDone("no such requirement"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown requirement should be ErrNotFound, got %v", err)
	}
}

func TestAddDecisionResolvesQuestion(t *testing.T) {
	doc := New("auth-system")
	doc.AddQuestion("magic link login", day)
	doc.AddDecision("Support magic link login alongside passwords", "Users asked for it", day)
	if len(doc.Questions) != 0 {
		t.Errorf("decision containing the question text should resolve it, got %v", doc.Questions)
	}
}

func TestAddDecisionDefaultRationale(t *testing.T) {
	doc := New("auth-system")
	doc.AddDecision("Use JWT", "", day)
	if doc.Decisions[0].Rationale != "See discussion" {
		t.Errorf("rationale = %q", doc.Decisions[0].Rationale)
	}
}

func TestResolveQuestion(t *testing.T) {
	doc := New("auth-system")
	doc.AddQuestion("Should we support magic link login?", day)
	doc.AddQuestion("How do we rotate keys?", day)
	if n := doc.ResolveQuestion("magic link"); n != 1 {
		t.Errorf("removed %d questions, want 1", n)
	}
	if len(doc.Questions) != 1 || !strings.Contains(doc.Questions[0].Text, "rotate") {
		t.Errorf("wrong question removed: %v", doc.Questions)
	}
}

func TestAddSessionLogGroupsByDay(t *testing.T) {
	doc := New("auth-system")
	doc.AddSessionLog("first", "", day)
	doc.AddSessionLog("second", "prompts/2026-02-10.md#L3", day)
	doc.AddSessionLog("next day", "", day.AddDate(0, 0, 1))
	if len(doc.SessionLog) != 2 {
		t.Fatalf("want 2 day sections, got %d", len(doc.SessionLog))
	}
	// newest day first
	if doc.SessionLog[0].Date != "2026-02-11" {
		t.Errorf("newest day should lead, got %s", doc.SessionLog[0].Date)
	}
	if len(doc.SessionLog[1].Entries) != 2 {
		t.Errorf("same-day entries should group, got %d", len(doc.SessionLog[1].Entries))
	}
}

func TestStaleQuestions(t *testing.T) {
	asked := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	doc := New("auth-system")
	doc.AddQuestion("Should we support magic link login?", asked)

	// eight days later, threshold seven: stale with age 8
	stale := StaleQuestions(doc, asked.AddDate(0, 0, 8), 7)
	if len(stale) != 1 {
		t.Fatalf("want 1 stale question, got %d", len(stale))
	}
	if stale[0].AgeDays != 8 {
		t.Errorf("age = %d, want 8", stale[0].AgeDays)
	}

	// six days later: not yet stale
	if got := StaleQuestions(doc, asked.AddDate(0, 0, 6), 7); len(got) != 0 {
		t.Errorf("question at six days should not be stale, got %v", got)
	}
}

func TestStaleQuestionsOldestFirst(t *testing.T) {
	doc := New("auth-system")
	doc.AddQuestion("newer question", time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC))
	doc.AddQuestion("older question", time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC))
	stale := StaleQuestions(doc, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 7)
	if len(stale) != 2 || stale[0].Text != "older question" {
		t.Errorf("stale questions should sort oldest first: %v", stale)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleDoc())
	if s.OpenReqs != 1 || s.DoneReqs != 1 || s.OpenQuestions != 1 || s.Decisions != 1 {
		t.Errorf("summary counts wrong: %+v", s)
	}
	if s.LatestDecision != "Use JWT for auth" {
		t.Errorf("latest decision = %q", s.LatestDecision)
	}
}

func TestAddPullRequestUpsert(t *testing.T) {
	doc := New("auth-system")
	doc.AddPullRequest(PullRequest{Number: 7, URL: "u", Branch: "b", Status: "Open"})
	doc.AddPullRequest(PullRequest{Number: 7, URL: "u", Branch: "b", Status: "Merged"})
	if len(doc.PullRequests) != 1 || doc.PullRequests[0].Status != "Merged" {
		t.Errorf("PR row should update in place: %v", doc.PullRequests)
	}
}
