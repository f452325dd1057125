package prd

import (
	"errors"
	"testing"
	"time"

	"github.com/kestrelworks/scribe/internal/store"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	p, err := store.OpenProject(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewManager(p)
}

func TestEnsureCreatesAndReloads(t *testing.T) {
	m := testManager(t)
	today := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	doc, err := m.Ensure("auth-system", today)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Auth System" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.SessionLog) != 1 || doc.SessionLog[0].Entries[0].Text != "PRD created" {
		t.Errorf("new PRD should seed a session log entry: %+v", doc.SessionLog)
	}

	doc.AddRequirement("Add rate limiting")
	if err := m.Save(doc); err != nil {
		t.Fatal(err)
	}

	again, err := m.Ensure("auth-system", today.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Requirements) != 1 {
		t.Errorf("Ensure should load the existing document, got %+v", again.Requirements)
	}
}

func TestLoadMissing(t *testing.T) {
	m := testManager(t)
	if _, err := m.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestMultilineTextSurvivesRoundTrip(t *testing.T) {
	asked := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	doc := New("billing")
	doc.AddRequirement("we need to add rate limiting\nto the public API")
	doc.AddConstraint("must stay\nstateless")
	doc.AddQuestion("should we support\nmagic links?", asked)
	doc.AddSessionLog("Added requirement: rate\nlimiting", "prompts/2026-02-10.md#L3", asked)

	got := Parse("billing", doc.Render())

	if len(got.Requirements) != 1 || got.Requirements[0].Text != "we need to add rate limiting to the public API" {
		t.Errorf("requirement lost text: %+v", got.Requirements)
	}
	if len(got.Constraints) != 1 || got.Constraints[0] != "must stay stateless" {
		t.Errorf("constraint lost text: %+v", got.Constraints)
	}
	if len(got.Questions) != 1 || got.Questions[0].Text != "should we support magic links?" {
		t.Errorf("question lost text: %+v", got.Questions)
	}
	if got.Questions[0].Asked != "2026-02-10" {
		t.Errorf("question lost asked date: %+v", got.Questions[0])
	}
	entries := got.SessionLog[0].Entries
	if len(entries) != 1 || entries[0].Text != "Added requirement: rate limiting" {
		t.Errorf("session entry lost text: %+v", entries)
	}
	if entries[0].PromptRef != "prompts/2026-02-10.md#L3" {
		t.Errorf("session entry lost ref: %+v", entries[0])
	}

	// flattened and original text are the same requirement
	if doc.AddRequirement("we need to add rate limiting to the public API") {
		t.Error("flattened duplicate should be rejected")
	}
}

func TestFeatureFromPrompt(t *testing.T) {
	cases := []struct{ text, want string }{
		{"I'm working on auth today", "auth"},
		{"fix the bug for the dashboard feature", "dashboard"},
		{"add a logout button", "general"},
	}
	for _, tc := range cases {
		if got := FeatureFromPrompt(tc.text); got != tc.want {
			t.Errorf("FeatureFromPrompt(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestFeatureFromPaths(t *testing.T) {
	rules := store.DefaultConfig().Features
	if got := FeatureFromPaths([]string{"src/auth/middleware.go"}, rules); got != "auth-system" {
		t.Errorf("path rule match = %q", got)
	}
	// the more specific prefix beats the shorter one
	if got := FeatureFromPaths([]string{"src/components/dashboard/panel.tsx"}, rules); got != "user-dashboard" {
		t.Errorf("longest prefix: got %q", got)
	}
	// fallback: first significant src/ directory
	if got := FeatureFromPaths([]string{"src/billing_engine/invoice.go"}, rules); got != "billing-engine" {
		t.Errorf("src fallback = %q", got)
	}
	if got := FeatureFromPaths([]string{"README.md"}, rules); got != "" {
		t.Errorf("no match should yield empty, got %q", got)
	}
}

func TestFeatureFromPathsLongestPrefixBeatsOrder(t *testing.T) {
	rules := []store.FeatureRule{
		{Prefix: "src/", Slug: "frontend"},
		{Prefix: "src/auth/", Slug: "auth-system"},
	}
	if got := FeatureFromPaths([]string{"src/auth/login.go"}, rules); got != "auth-system" {
		t.Errorf("a short prefix configured first must not shadow a longer one, got %q", got)
	}
	// equal-length prefixes matching the same path: first configured wins
	tied := []store.FeatureRule{
		{Prefix: "api/", Slug: "api-integration"},
		{Prefix: "lib/", Slug: "libraries"},
	}
	if got := FeatureFromPaths([]string{"lib/api/client.go"}, tied); got != "api-integration" {
		t.Errorf("tie should keep the first configured rule, got %q", got)
	}
}

func TestFeatureFromBranch(t *testing.T) {
	cases := []struct{ branch, want string }{
		{"feat/auth-refresh-tokens", "auth-system"},
		{"fix/payment_retry", "payments"},
		{"feature/search-index", "search-index"},
		{"main", ""},
	}
	for _, tc := range cases {
		if got := FeatureFromBranch(tc.branch); got != tc.want {
			t.Errorf("FeatureFromBranch(%q) = %q, want %q", tc.branch, got, tc.want)
		}
	}
}
