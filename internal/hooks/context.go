package hooks

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kestrelworks/scribe/internal/learning"
	"github.com/kestrelworks/scribe/internal/prd"
	"github.com/kestrelworks/scribe/internal/store"
	"github.com/kestrelworks/scribe/internal/summary"
)

const memoryPreamble = "You have persistent project memory. The context below was " +
	"captured from previous sessions: active PRDs, open questions, recent " +
	"conversations, and learnings. Treat decisions recorded here as settled " +
	"unless the user revisits them."

type prdInfo struct {
	Slug     string
	Doc      *prd.Document
	Summary  prd.Summary
	DaysIdle int
}

func (r *Runner) loadPRDs(now time.Time) []prdInfo {
	var out []prdInfo
	for _, slug := range r.Project.ListPRDs() {
		doc, err := r.PRDs.Load(slug)
		if err != nil {
			continue
		}
		info := prdInfo{Slug: slug, Doc: doc, Summary: prd.Summarize(doc), DaysIdle: 9999}
		if st, err := os.Stat(r.Project.PRDFile(slug)); err == nil {
			info.DaysIdle = int(now.Sub(st.ModTime()).Hours() / 24)
		}
		out = append(out, info)
	}
	// most recently touched first
	sort.Slice(out, func(i, j int) bool { return out[i].DaysIdle < out[j].DaysIdle })
	return out
}

// fullContext renders the session-start memory block: detailed PRDs under
// the char budgets, overviews for the rest, stale questions, recent
// conversations, the latest weekly summary extract, and recent learnings.
func (r *Runner) fullContext(now time.Time) string {
	cfg := r.Global.Config
	prds := r.loadPRDs(now)

	var b strings.Builder
	b.WriteString("<scribe-context>\n")
	b.WriteString(memoryPreamble + "\n")

	full := prds
	if len(full) > cfg.Context.MaxFullPRDs {
		full = full[:cfg.Context.MaxFullPRDs]
	}
	rest := prds[len(full):]

	if len(full) > 0 {
		b.WriteString("## Active PRDs (detailed)\n\n")
		for _, info := range full {
			fmt.Fprintf(&b, "### %s\n", info.Doc.Title)
			b.WriteString(clip(info.Doc.Render(), cfg.Context.MaxPRDChars))
			b.WriteString("\n\n")
		}
	}

	if len(rest) > 0 {
		b.WriteString("## Active PRDs (overview)\n\n")
		for _, info := range rest {
			writeOverview(&b, info)
		}
	}

	if len(prds) == 0 {
		b.WriteString("## Active PRDs\n\nNone yet. PRDs are created as features come up in conversation.\n\n")
	}

	writeStaleQuestions(&b, prds, now, cfg.Questions.StaleAfterDays)
	r.writeRecentConversations(&b, now, cfg.Context.MaxRecentPrompts)
	r.writeWeeklyExtract(&b, cfg.Context.MaxWeeklyChars)
	r.writeRecentLearnings(&b, now)

	b.WriteString("</scribe-context>")
	return b.String()
}

// compactContext is the slimmer post-compaction re-injection: overviews and
// stale questions only.
func (r *Runner) compactContext(now time.Time) string {
	prds := r.loadPRDs(now)

	var b strings.Builder
	b.WriteString("<scribe-context>\n")
	b.WriteString("Context restored after compaction.\n")

	if len(prds) > 0 {
		b.WriteString("## Active PRDs (overview)\n\n")
		for _, info := range prds {
			writeOverview(&b, info)
		}
	}
	writeStaleQuestions(&b, prds, now, r.Global.Config.Questions.StaleAfterDays)

	b.WriteString("</scribe-context>")
	return b.String()
}

func writeOverview(b *strings.Builder, info prdInfo) {
	fmt.Fprintf(b, "### %s\n", info.Doc.Title)

	var status []string
	if info.Summary.OpenReqs > 0 {
		status = append(status, fmt.Sprintf("%d open", info.Summary.OpenReqs))
	}
	if info.Summary.DoneReqs > 0 {
		status = append(status, fmt.Sprintf("%d done", info.Summary.DoneReqs))
	}
	if info.Summary.OpenQuestions > 0 {
		status = append(status, fmt.Sprintf("%d questions", info.Summary.OpenQuestions))
	}
	if len(status) == 0 {
		status = append(status, "No requirements")
	}
	fmt.Fprintf(b, "- Status: %s\n", strings.Join(status, ", "))
	fmt.Fprintf(b, "- Last updated: %s\n", freshness(info.DaysIdle))
	if info.Summary.LatestDecision != "" {
		fmt.Fprintf(b, "- Latest decision: %s (%s)\n", info.Summary.LatestDecision, info.Summary.LatestDecidedAt)
	}
	b.WriteString("\n")
}

func freshness(days int) string {
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func writeStaleQuestions(b *strings.Builder, prds []prdInfo, now time.Time, threshold int) {
	var all []prd.StaleQuestion
	for _, info := range prds {
		all = append(all, prd.StaleQuestions(info.Doc, now, threshold)...)
	}
	if len(all) == 0 {
		return
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Asked < all[j].Asked })
	if len(all) > 5 {
		all = all[:5]
	}
	b.WriteString("### Stale Questions (need attention)\n")
	for _, q := range all {
		fmt.Fprintf(b, "- **%s**: %s (%d days old)\n", q.Slug, q.Text, q.AgeDays)
	}
	b.WriteString("\n")
}

func (r *Runner) writeRecentConversations(b *strings.Builder, now time.Time, limit int) {
	recent := r.Capture.Recent(limit, now)
	if len(recent) == 0 {
		return
	}
	b.WriteString("## Recent Conversations\n\n")
	for _, e := range recent {
		fmt.Fprintf(b, "- %s [%s] %s\n", e.Time, e.Feature, clip(strings.ReplaceAll(e.Text, "\n", " "), 60))
	}
	b.WriteString("\n")
}

var overviewSectionRe = regexp.MustCompile(`(?s)## Overview\n(.*?)(\n## |\z)`)
var decisionsSectionRe = regexp.MustCompile(`(?s)## Decisions Made\n(.*?)(\n## |\z)`)

func (r *Runner) writeWeeklyExtract(b *strings.Builder, maxChars int) {
	week, content, ok := r.latestWeeklySummary()
	if !ok {
		return
	}
	var parts []string
	if m := overviewSectionRe.FindStringSubmatch(content); m != nil {
		parts = append(parts, fmt.Sprintf("**%s Overview**\n%s", week, strings.TrimSpace(m[1])))
	}
	if m := decisionsSectionRe.FindStringSubmatch(content); m != nil {
		parts = append(parts, "**Key Decisions**\n"+strings.TrimSpace(m[1]))
	}
	if len(parts) == 0 {
		return
	}
	extract := strings.Join(parts, "\n\n")
	if len(extract) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(extract[cut]) {
			cut--
		}
		extract = extract[:cut] + "\n...(truncated)"
	}
	b.WriteString("## Weekly Summary\n\n" + extract + "\n\n")
}

func (r *Runner) latestWeeklySummary() (week, content string, ok bool) {
	dir := r.Project.Path("summaries", summary.Weekly)
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return "", "", false
	}
	var ids []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".md") {
			ids = append(ids, strings.TrimSuffix(e.Name(), ".md"))
		}
	}
	if len(ids) == 0 {
		return "", "", false
	}
	sort.Strings(ids)
	week = ids[len(ids)-1]
	content, ok = store.ReadFile(r.Project.SummaryFile(summary.Weekly, week))
	return week, content, ok
}

func (r *Runner) writeRecentLearnings(b *strings.Builder, now time.Time) {
	var items []struct {
		date  string
		entry learning.Entry
	}
	for d := 0; d < 3; d++ {
		day := now.AddDate(0, 0, -d)
		content, ok := store.ReadFile(r.Global.DailyFile(day))
		if !ok {
			continue
		}
		for _, e := range learning.ParseDay(content) {
			items = append(items, struct {
				date  string
				entry learning.Entry
			}{day.Format("2006-01-02"), e})
		}
	}
	if len(items) == 0 {
		return
	}
	if len(items) > 10 {
		items = items[:10]
	}
	b.WriteString("## Recent Learnings\n\n")
	cur := ""
	for _, it := range items {
		if it.date != cur {
			cur = it.date
			fmt.Fprintf(b, "### %s\n", cur)
		}
		fmt.Fprintf(b, "- [%s] %s\n", it.entry.Kind, clip(it.entry.Text, 100))
	}
	b.WriteString("\n")
}
