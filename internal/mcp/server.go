// Package mcp exposes scribe's project memory to MCP clients over stdio.
package mcp

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kestrelworks/scribe/internal/hooks"
	"github.com/kestrelworks/scribe/internal/prd"
	"github.com/kestrelworks/scribe/internal/prlink"
	"github.com/kestrelworks/scribe/internal/signal"
	"github.com/kestrelworks/scribe/internal/store"
)

// Server wraps the MCP server around one project's scribe stores.
type Server struct {
	runner *hooks.Runner
	linker *prlink.Linker
	server *mcp.Server
}

// NewServer creates a scribe MCP server for the project containing runner.
func NewServer(runner *hooks.Runner, version string) *Server {
	s := &Server{
		runner: runner,
		linker: prlink.New(runner.Project),
	}

	impl := &mcp.Implementation{
		Name:    "scribe",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	// scribe_status - project memory at a glance
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "scribe_status",
		Description: "Get the current state of this project's memory: every PRD with its " +
			"open/done requirement counts and latest decision, stale questions that need " +
			"attention, and branches linked to PRDs. START HERE at the beginning of a task " +
			"to understand what has already been decided and what is still open.",
	}, s.handleStatus)

	// scribe_search - full-text search across PRDs and prompt logs
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "scribe_search",
		Description: "Search PRDs and the captured prompt history for a phrase. Returns " +
			"matching lines with their file and line number. Use this to find where a " +
			"topic was discussed or decided before re-litigating it.",
	}, s.handleSearch)

	// scribe_capture - feed a prompt through the detection pipeline
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "scribe_capture",
		Description: "Record a piece of conversation in project memory. The text is " +
			"deduplicated against previously captured prompts, scanned for requirement, " +
			"decision, constraint and question signals, and any detected signals are " +
			"folded into the feature's PRD. Use this when the user states something worth " +
			"remembering outside a hooked prompt.",
	}, s.handleCapture)

	// scribe_prd_read - full PRD document
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "scribe_prd_read",
		Description: "Read a full PRD document by slug. Use scribe_status first to see " +
			"which PRDs exist; this returns the complete markdown including requirements, " +
			"decisions with rationale, constraints, open questions and the session log.",
	}, s.handlePRDRead)
}

// StatusArgs defines the input for scribe_status.
type StatusArgs struct {
	Stale bool `json:"stale,omitempty" jsonschema:"If true, include only PRDs that have stale open questions"`
}

// PRDStatus is a lightweight view of one PRD.
type PRDStatus struct {
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	OpenReqs       int    `json:"open_requirements"`
	DoneReqs       int    `json:"done_requirements"`
	OpenQuestions  int    `json:"open_questions"`
	LatestDecision string `json:"latest_decision,omitempty"`
}

// StaleQuestionInfo is an open question past the staleness threshold.
type StaleQuestionInfo struct {
	PRD     string `json:"prd"`
	Text    string `json:"text"`
	AgeDays int    `json:"age_days"`
}

// StatusResult is the output of scribe_status.
type StatusResult struct {
	ProjectRoot    string              `json:"project_root"`
	PRDs           []PRDStatus         `json:"prds"`
	StaleQuestions []StaleQuestionInfo `json:"stale_questions,omitempty"`
	LinkedBranches []string            `json:"linked_branches,omitempty"`
	Message        string              `json:"message,omitempty"`
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	now := s.runner.Now()
	threshold := s.runner.Global.Config.Questions.StaleAfterDays

	out := StatusResult{ProjectRoot: s.runner.Project.ProjectPath}
	for _, slug := range s.runner.Project.ListPRDs() {
		doc, err := s.runner.PRDs.Load(slug)
		if err != nil {
			continue
		}
		stale := prd.StaleQuestions(doc, now, threshold)
		if args.Stale && len(stale) == 0 {
			continue
		}
		sum := prd.Summarize(doc)
		out.PRDs = append(out.PRDs, PRDStatus{
			Slug:           slug,
			Title:          doc.Title,
			OpenReqs:       sum.OpenReqs,
			DoneReqs:       sum.DoneReqs,
			OpenQuestions:  sum.OpenQuestions,
			LatestDecision: sum.LatestDecision,
		})
		for _, q := range stale {
			out.StaleQuestions = append(out.StaleQuestions, StaleQuestionInfo{
				PRD:     slug,
				Text:    q.Text,
				AgeDays: q.AgeDays,
			})
		}
	}
	sort.Slice(out.StaleQuestions, func(i, j int) bool {
		return out.StaleQuestions[i].AgeDays > out.StaleQuestions[j].AgeDays
	})
	out.LinkedBranches = s.linker.ActiveBranches()

	if len(out.PRDs) == 0 {
		out.Message = "No PRDs yet. They are created automatically as requirements, decisions and questions come up in conversation."
	}
	return nil, out, nil
}

// SearchArgs defines the input for scribe_search.
type SearchArgs struct {
	Query string `json:"query" jsonschema:"Phrase to search for (case-insensitive substring match)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum matches to return (default 20)"`
}

// SearchMatch is one matching line.
type SearchMatch struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchResult is the output of scribe_search.
type SearchResult struct {
	Matches []SearchMatch `json:"matches"`
	Message string        `json:"message,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, nil, fmt.Errorf("query is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}

	out := SearchResult{}
	for _, file := range s.searchFiles() {
		content, ok := store.ReadFile(file)
		if !ok {
			continue
		}
		for _, m := range matchLines(content, args.Query) {
			m.File = relToProject(s.runner.Project, file)
			out.Matches = append(out.Matches, m)
			if len(out.Matches) >= limit {
				break
			}
		}
		if len(out.Matches) >= limit {
			break
		}
	}
	if len(out.Matches) == 0 {
		out.Message = fmt.Sprintf("No matches for %q in PRDs or prompt history.", args.Query)
	}
	return nil, out, nil
}

// searchFiles lists PRD files followed by prompt day files, newest day first.
func (s *Server) searchFiles() []string {
	var files []string
	for _, slug := range s.runner.Project.ListPRDs() {
		files = append(files, s.runner.Project.PRDFile(slug))
	}
	dir := s.runner.Project.Path("prompts")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return files
	}
	var days []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".md") {
			days = append(days, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	for _, name := range days {
		files = append(files, s.runner.Project.Path("prompts", name))
	}
	return files
}

func matchLines(content, query string) []SearchMatch {
	q := strings.ToLower(query)
	var out []SearchMatch
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(strings.ToLower(line), q) {
			out = append(out, SearchMatch{Line: i + 1, Text: strings.TrimSpace(line)})
		}
	}
	return out
}

func relToProject(p *store.ProjectStore, path string) string {
	if rel, ok := strings.CutPrefix(path, p.Root+string(os.PathSeparator)); ok {
		return rel
	}
	return path
}

// CaptureArgs defines the input for scribe_capture.
type CaptureArgs struct {
	Text string `json:"text" jsonschema:"The conversation text to capture"`
}

// CaptureResult is the output of scribe_capture.
type CaptureResult struct {
	Duplicate bool     `json:"duplicate"`
	Feature   string   `json:"feature,omitempty"`
	Signals   []string `json:"signals,omitempty"`
	Message   string   `json:"message"`
}

func (s *Server) handleCapture(ctx context.Context, req *mcp.CallToolRequest, args CaptureArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Text) == "" {
		return nil, nil, fmt.Errorf("text is required")
	}

	out := CaptureResult{}
	if s.runner.Capture.Seen(args.Text) {
		out.Duplicate = true
		out.Message = "Already captured; nothing changed."
		return nil, out, nil
	}

	out.Feature = prd.FeatureFromPrompt(args.Text)
	for _, sig := range signal.Detect(args.Text, s.runner.Now()) {
		out.Signals = append(out.Signals, string(sig.Kind)+": "+sig.Summary)
	}
	if kind, _, ok := signal.DetectLearning(args.Text); ok {
		out.Signals = append(out.Signals, "learning ("+string(kind)+")")
	}

	if err := s.runner.Prompt(hooks.Payload{Prompt: args.Text}); err != nil {
		return nil, nil, fmt.Errorf("capture failed: %w", err)
	}

	if len(out.Signals) == 0 {
		out.Message = "Captured to the prompt log; no signals detected."
	} else {
		out.Message = fmt.Sprintf("Captured; %d signal(s) folded into the %q PRD.", len(out.Signals), out.Feature)
	}
	return nil, out, nil
}

// PRDReadArgs defines the input for scribe_prd_read.
type PRDReadArgs struct {
	Slug string `json:"slug" jsonschema:"The PRD slug to read (e.g. user-auth)"`
}

// PRDReadResult is the output of scribe_prd_read.
type PRDReadResult struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

func (s *Server) handlePRDRead(ctx context.Context, req *mcp.CallToolRequest, args PRDReadArgs) (*mcp.CallToolResult, any, error) {
	if args.Slug == "" {
		return nil, nil, fmt.Errorf("slug is required")
	}
	doc, err := s.runner.PRDs.Load(args.Slug)
	if err != nil {
		if known := s.runner.Project.ListPRDs(); len(known) > 0 {
			return nil, nil, fmt.Errorf("no PRD %q; known PRDs: %s", args.Slug, strings.Join(known, ", "))
		}
		return nil, nil, fmt.Errorf("no PRD %q and no PRDs exist yet", args.Slug)
	}
	return nil, PRDReadResult{
		Slug:     args.Slug,
		Title:    doc.Title,
		Markdown: doc.Render(),
	}, nil
}
