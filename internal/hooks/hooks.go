// Package hooks adapts host lifecycle events (prompt submitted, response
// finished, session start/end, pre-compaction) into pipeline calls. Hook
// handlers never block the host: every failure degrades to a log line, and
// the hook command exits 0 regardless.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kestrelworks/scribe/internal/capture"
	"github.com/kestrelworks/scribe/internal/learning"
	"github.com/kestrelworks/scribe/internal/prd"
	"github.com/kestrelworks/scribe/internal/signal"
	"github.com/kestrelworks/scribe/internal/store"
	"github.com/kestrelworks/scribe/internal/summary"
)

// Payload is the JSON document a host writes to stdin when firing a hook.
// Fields are event-specific; unknown fields are ignored.
type Payload struct {
	Prompt  string   `json:"prompt"`
	CWD     string   `json:"cwd"`
	Source  string   `json:"source"`  // session-start: startup, resume, clear, compact
	Summary string   `json:"summary"` // stop: assistant response summary
	Prompts []string `json:"prompts"` // session-end / pre-compact: unsaved prompts
}

// ReadPayload decodes a hook payload from a reader. A malformed payload is
// an error for the caller to log, never a reason to block the host.
func ReadPayload(r io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("bad hook payload: %w", err)
	}
	return p, nil
}

// Runner wires one project's stores to the hook handlers.
type Runner struct {
	Global    *store.Store
	Project   *store.ProjectStore
	Capture   *capture.Capture
	PRDs      *prd.Manager
	Learnings *learning.Log
	Summaries *summary.Manager
	Log       *log.Logger
	Now       func() time.Time
}

// NewRunner builds a runner rooted at the project containing dir.
func NewRunner(dir string, logger *log.Logger) (*Runner, error) {
	global, err := store.Load(store.Home())
	if err != nil {
		return nil, err
	}
	project, err := store.OpenProject(store.FindProjectRoot(dir))
	if err != nil {
		return nil, err
	}
	return &Runner{
		Global:    global,
		Project:   project,
		Capture:   capture.New(project, global.Config.Capture),
		PRDs:      prd.NewManager(project),
		Learnings: learning.NewLog(global),
		Summaries: summary.NewManager(project, global),
		Log:       logger,
		Now:       time.Now,
	}, nil
}

// Prompt handles a submitted user prompt: capture it, fold detected signals
// into the feature's PRD, and record any learning signal globally. Duplicate
// prompts (re-fired hooks, compaction replays) are dropped by the
// fingerprint index.
func (r *Runner) Prompt(p Payload) error {
	if p.Prompt == "" {
		return nil
	}
	now := r.Now()

	if r.Capture.Seen(p.Prompt) {
		r.Log.Debug("duplicate prompt skipped")
		return nil
	}

	feature := prd.FeatureFromPrompt(p.Prompt)
	ref, _, err := r.Capture.Capture(p.Prompt, now, feature)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	if signals := signal.Detect(p.Prompt, now); len(signals) > 0 {
		if err := r.applySignals(feature, signals, ref, now); err != nil {
			return err
		}
	}

	if kind, phrase, ok := signal.DetectLearning(p.Prompt); ok {
		if _, err := r.Learnings.Record(kind, p.Prompt, phrase, now); err != nil {
			return fmt.Errorf("learning log: %w", err)
		}
	}
	return nil
}

func (r *Runner) applySignals(feature string, signals []signal.Signal, ref string, now time.Time) error {
	doc, err := r.PRDs.Ensure(feature, now)
	if err != nil {
		return fmt.Errorf("ensure prd: %w", err)
	}

	changed := false
	for _, s := range signals {
		switch s.Kind {
		case signal.KindRequirement:
			if doc.AddRequirement(s.Summary) {
				doc.AddSessionLog("Added requirement: "+clip(s.Summary, 50), ref, now)
				changed = true
			}
		case signal.KindDecision:
			if doc.AddDecision(s.Summary, s.Rationale, now) {
				doc.AddSessionLog("Decided: "+clip(s.Summary, 50), ref, now)
				changed = true
			}
		case signal.KindConstraint:
			if doc.AddConstraint(s.Summary) {
				doc.AddSessionLog("Added constraint: "+clip(s.Summary, 50), ref, now)
				changed = true
			}
		case signal.KindQuestion:
			if doc.AddQuestion(s.Summary, now) {
				doc.AddSessionLog("Question raised: "+clip(s.Summary, 50), ref, now)
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	if err := r.PRDs.Save(doc); err != nil {
		return fmt.Errorf("save prd: %w", err)
	}
	r.Log.Info("prd updated", "feature", feature, "signals", len(signals))
	return nil
}

// clip cuts on a rune boundary so multi-byte text stays valid UTF-8.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Stop handles the end of an assistant turn: append the response summary and
// sweep any prompts the payload carries through the capture path. The dedup
// index makes the sweep idempotent.
func (r *Runner) Stop(p Payload) error {
	now := r.Now()
	if p.Summary != "" {
		if err := r.Capture.AppendResponseSummary(p.Summary, now); err != nil {
			return fmt.Errorf("response summary: %w", err)
		}
	}
	return r.sweep(p.Prompts)
}

// SessionEnd sweeps unsaved prompts from the closing session.
func (r *Runner) SessionEnd(p Payload) error {
	return r.sweep(p.Prompts)
}

// PreCompact sweeps the prompts about to leave the host's context window.
func (r *Runner) PreCompact(p Payload) error {
	return r.sweep(p.Prompts)
}

func (r *Runner) sweep(prompts []string) error {
	for _, text := range prompts {
		if err := r.Prompt(Payload{Prompt: text}); err != nil {
			r.Log.Warn("sweep failed for prompt", "err", err)
		}
	}
	return nil
}

// SessionStart generates any pending boundary summaries and returns the
// memory context block to inject. source=compact gets the compact variant.
func (r *Runner) SessionStart(p Payload) (string, error) {
	now := r.Now()

	for _, pending := range r.Summaries.Pending(now) {
		if _, err := r.Summaries.Generate(pending.Type, pending.Period, false, now); err != nil {
			r.Log.Warn("pending summary generation failed", "period", pending.Period, "err", err)
			continue
		}
		r.Log.Info("generated pending summary", "type", pending.Type, "period", pending.Period)
	}

	if p.Source == "compact" {
		return r.compactContext(now), nil
	}
	return r.fullContext(now), nil
}
