// Package summary builds the hierarchical rollups: weekly summaries are
// collected from raw day data, monthly summaries aggregate the weekly files,
// yearly summaries aggregate the monthly files. Rollup layers never re-run
// signal detection; they are pure arithmetic over their children.
package summary

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kestrelworks/scribe/internal/capture"
	"github.com/kestrelworks/scribe/internal/learning"
	"github.com/kestrelworks/scribe/internal/prd"
	"github.com/kestrelworks/scribe/internal/store"
)

// Manager generates and caches period summaries for one project.
type Manager struct {
	Project *store.ProjectStore
	Global  *store.Store
	PRDs    *prd.Manager
}

func NewManager(project *store.ProjectStore, global *store.Store) *Manager {
	return &Manager{Project: project, Global: global, PRDs: prd.NewManager(project)}
}

// Stats are the headline counts of a period.
type Stats struct {
	Prompts      int
	Decisions    int
	Requirements int
	Learnings    int
}

// PeriodDecision is a PRD decision that falls inside a period.
type PeriodDecision struct {
	PRD       string
	Date      string
	Decision  string
	Rationale string
}

// CompletedItem is a requirement completion found in a PRD session log.
type CompletedItem struct {
	PRD  string
	Date string
	Text string
	Ref  string
}

// PeriodQuestion is an open question asked inside a period.
type PeriodQuestion struct {
	PRD  string
	Date string
	Text string
}

// PromptRef is a captured prompt located in a period.
type PromptRef struct {
	Date    string
	Feature string
	Time    string
	Text    string
}

// LearningItem is a learning-log entry located in a period.
type LearningItem struct {
	Kind string
	Date string
	Text string
}

// WeekData is everything a weekly summary is built from.
type WeekData struct {
	Period     string
	Start, End time.Time
	Prompts    []PromptRef
	Decisions  []PeriodDecision
	Completed  []CompletedItem
	Learnings  []LearningItem
	Questions  []PeriodQuestion
}

// CollectWeek gathers a week's raw data: prompt logs day by day, PRD
// decisions, session-log completions and questions filtered to the range,
// and the global learning logs.
func (m *Manager) CollectWeek(weekID string) (*WeekData, error) {
	start, end, err := WeekRange(weekID)
	if err != nil {
		return nil, err
	}
	data := &WeekData{Period: weekID, Start: start, End: end}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		if content, ok := store.ReadFile(m.Project.PromptFile(d)); ok {
			for _, e := range capture.ParseDay(content) {
				data.Prompts = append(data.Prompts, PromptRef{
					Date: date, Feature: e.Feature, Time: e.Time, Text: e.Text,
				})
			}
		}
		if m.Global != nil {
			if content, ok := store.ReadFile(m.Global.DailyFile(d)); ok {
				for _, e := range learning.ParseDay(content) {
					data.Learnings = append(data.Learnings, LearningItem{
						Kind: string(e.Kind), Date: date, Text: e.Text,
					})
				}
			}
		}
	}

	for _, slug := range m.Project.ListPRDs() {
		doc, err := m.PRDs.Load(slug)
		if err != nil {
			continue
		}
		m.collectPRD(doc, start, end, data)
	}

	sort.Slice(data.Decisions, func(i, j int) bool {
		if data.Decisions[i].PRD != data.Decisions[j].PRD {
			return data.Decisions[i].PRD < data.Decisions[j].PRD
		}
		return data.Decisions[i].Date < data.Decisions[j].Date
	})
	sort.Slice(data.Completed, func(i, j int) bool {
		if data.Completed[i].PRD != data.Completed[j].PRD {
			return data.Completed[i].PRD < data.Completed[j].PRD
		}
		return data.Completed[i].Date < data.Completed[j].Date
	})
	return data, nil
}

var completedRe = regexp.MustCompile(`(?i)\bcompleted\b|\[x\]`)

func (m *Manager) collectPRD(doc *prd.Document, start, end time.Time, data *WeekData) {
	inRange := func(date string) bool {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return false
		}
		return !d.Before(start) && !d.After(end)
	}

	for _, dec := range doc.Decisions {
		if inRange(dec.Date) {
			data.Decisions = append(data.Decisions, PeriodDecision{
				PRD: doc.Slug, Date: dec.Date, Decision: dec.Decision, Rationale: dec.Rationale,
			})
		}
	}
	for _, day := range doc.SessionLog {
		if !inRange(day.Date) {
			continue
		}
		for _, e := range day.Entries {
			if completedRe.MatchString(e.Text) {
				data.Completed = append(data.Completed, CompletedItem{
					PRD: doc.Slug, Date: day.Date, Text: e.Text, Ref: e.PromptRef,
				})
			}
		}
	}
	for _, q := range doc.Questions {
		if inRange(q.Asked) {
			data.Questions = append(data.Questions, PeriodQuestion{
				PRD: doc.Slug, Date: q.Asked, Text: q.Text,
			})
		}
	}
}

// RenderWeekly writes a week's summary markdown.
func RenderWeekly(d *WeekData, generatedAt time.Time) string {
	var b strings.Builder
	weekNum := d.Period[strings.Index(d.Period, "-W")+2:]
	fmt.Fprintf(&b, "# Week %s Summary (%s-%s)\n\n", weekNum,
		d.Start.Format("Jan 02"), d.End.Format("02, 2006"))

	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "- **Prompts analyzed**: %d\n", len(d.Prompts))
	fmt.Fprintf(&b, "- **Requirements completed**: %d\n", len(d.Completed))
	fmt.Fprintf(&b, "- **Decisions made**: %d\n", len(d.Decisions))
	fmt.Fprintf(&b, "- **Learnings captured**: %d\n", len(d.Learnings))
	fmt.Fprintf(&b, "- **Questions raised**: %d\n\n", len(d.Questions))

	if len(d.Decisions) > 0 {
		b.WriteString("## Decisions Made\n\n")
		cur := ""
		for _, dec := range d.Decisions {
			if dec.PRD != cur {
				cur = dec.PRD
				fmt.Fprintf(&b, "### %s\n", prd.TitleFromSlug(cur))
			}
			fmt.Fprintf(&b, "- **%s** - %s\n  - Date: %s\n", dec.Decision, dec.Rationale, dec.Date)
		}
		b.WriteString("\n")
	}

	if len(d.Completed) > 0 {
		b.WriteString("## Requirements Completed\n\n")
		cur := ""
		for _, item := range d.Completed {
			if item.PRD != cur {
				cur = item.PRD
				fmt.Fprintf(&b, "### %s\n", prd.TitleFromSlug(cur))
			}
			if item.Ref != "" {
				fmt.Fprintf(&b, "- [x] %s ([prompt](../%s))\n", item.Text, item.Ref)
			} else {
				fmt.Fprintf(&b, "- [x] %s\n", item.Text)
			}
		}
		b.WriteString("\n")
	}

	if len(d.Learnings) > 0 {
		b.WriteString("## Learnings\n\n")
		byKind := map[string][]LearningItem{}
		var kinds []string
		for _, l := range d.Learnings {
			if _, ok := byKind[l.Kind]; !ok {
				kinds = append(kinds, l.Kind)
			}
			byKind[l.Kind] = append(byKind[l.Kind], l)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(&b, "### %ss\n", kind)
			items := byKind[kind]
			if len(items) > 5 {
				items = items[:5]
			}
			for _, item := range items {
				text := item.Text
				if len(text) > 100 {
					text = text[:97] + "..."
				}
				fmt.Fprintf(&b, "- %s\n", text)
			}
			b.WriteString("\n")
		}
	}

	if len(d.Questions) > 0 {
		b.WriteString("## Open Questions\n\n")
		for _, q := range d.Questions {
			fmt.Fprintf(&b, "- %s (%s, asked %s)\n", q.Text, q.PRD, q.Date)
		}
		b.WriteString("\n")
	}

	if len(d.Prompts) > 0 {
		b.WriteString("## Prompt References\n\n")
		byDate := map[string]int{}
		var dates []string
		for _, p := range d.Prompts {
			if byDate[p.Date] == 0 {
				dates = append(dates, p.Date)
			}
			byDate[p.Date]++
		}
		sort.Strings(dates)
		for _, date := range dates {
			fmt.Fprintf(&b, "- **%s**: %d prompts ([view](../prompts/%s.md))\n", date, byDate[date], date)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "_Generated: %s_\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "_Period: %s to %s_\n", d.Start.Format("2006-01-02"), d.End.Format("2006-01-02"))
	return b.String()
}

// ChildStats pairs a child period id with its parsed stats.
type ChildStats struct {
	ID    string
	Stats Stats
}

// RollupData is a monthly or yearly aggregation of child summary files.
type RollupData struct {
	Period     string
	Start, End time.Time
	Included   []string
	Missing    []string
	Totals     Stats
	Children   []ChildStats
}

// Complete reports whether every child summary was present.
func (r *RollupData) Complete() bool { return len(r.Missing) == 0 }

// CollectMonth aggregates the weekly summary files overlapping a month.
// Absent weeks are reported in Missing, never silently skipped.
func (m *Manager) CollectMonth(monthID string) (*RollupData, error) {
	weeks, err := WeeksInMonth(monthID)
	if err != nil {
		return nil, err
	}
	start, end, _ := MonthRange(monthID)
	data := &RollupData{Period: monthID, Start: start, End: end}

	for _, week := range weeks {
		content, ok := store.ReadFile(m.Project.SummaryFile(Weekly, week))
		if !ok {
			data.Missing = append(data.Missing, week)
			continue
		}
		stats := ParseWeeklyStats(content)
		data.Included = append(data.Included, week)
		data.Children = append(data.Children, ChildStats{ID: week, Stats: stats})
		data.Totals = addStats(data.Totals, stats)
	}
	return data, nil
}

// CollectYear aggregates the monthly summary files of a year.
func (m *Manager) CollectYear(yearID string) (*RollupData, error) {
	if _, err := strconv.Atoi(yearID); err != nil {
		return nil, fmt.Errorf("bad year id %q", yearID)
	}
	data := &RollupData{Period: yearID}
	data.Start, _ = time.Parse("2006-01-02", yearID+"-01-01")
	data.End, _ = time.Parse("2006-01-02", yearID+"-12-31")

	for _, month := range MonthsInYear(yearID) {
		content, ok := store.ReadFile(m.Project.SummaryFile(Monthly, month))
		if !ok {
			data.Missing = append(data.Missing, month)
			continue
		}
		stats := ParseMonthlyStats(content)
		data.Included = append(data.Included, month)
		data.Children = append(data.Children, ChildStats{ID: month, Stats: stats})
		data.Totals = addStats(data.Totals, stats)
	}
	return data, nil
}

func addStats(a, b Stats) Stats {
	return Stats{
		Prompts:      a.Prompts + b.Prompts,
		Decisions:    a.Decisions + b.Decisions,
		Requirements: a.Requirements + b.Requirements,
		Learnings:    a.Learnings + b.Learnings,
	}
}

// RenderMonthly writes a month's rollup markdown.
func RenderMonthly(d *RollupData, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Summary\n\n", d.Start.Format("January 2006"))

	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "- **Weeks included**: %s\n", joinOrNone(d.Included))
	fmt.Fprintf(&b, "- **Weeks missing**: %s\n", joinOrNone(d.Missing))
	writeTotals(&b, d.Totals)

	if len(d.Children) > 0 {
		b.WriteString("## Weekly Breakdown\n\n")
		b.WriteString("| Week | Prompts | Decisions | Requirements | Learnings |\n")
		b.WriteString("|------|---------|-----------|--------------|-----------|\n")
		for _, c := range d.Children {
			fmt.Fprintf(&b, "| [%s](../weekly/%s.md) | %d | %d | %d | %d |\n",
				c.ID, c.ID, c.Stats.Prompts, c.Stats.Decisions, c.Stats.Requirements, c.Stats.Learnings)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "_Generated: %s_\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "_Weeks covered: %d/%d_\n", len(d.Included), len(d.Included)+len(d.Missing))
	return b.String()
}

// RenderYearly writes a year's rollup markdown.
func RenderYearly(d *RollupData, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Annual Summary\n\n", d.Period)

	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "- **Months included**: %d\n", len(d.Included))
	fmt.Fprintf(&b, "- **Months missing**: %d\n", len(d.Missing))
	writeTotals(&b, d.Totals)

	if len(d.Children) > 0 {
		b.WriteString("## Monthly Breakdown\n\n")
		b.WriteString("| Month | Prompts | Decisions | Requirements | Learnings |\n")
		b.WriteString("|-------|---------|-----------|--------------|-----------|\n")
		for _, c := range d.Children {
			fmt.Fprintf(&b, "| [%s](../monthly/%s.md) | %d | %d | %d | %d |\n",
				c.ID, c.ID, c.Stats.Prompts, c.Stats.Decisions, c.Stats.Requirements, c.Stats.Learnings)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "_Generated: %s_\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "_Months covered: %d/12_\n", len(d.Included))
	return b.String()
}

func writeTotals(b *strings.Builder, s Stats) {
	fmt.Fprintf(b, "- **Total prompts**: %d\n", s.Prompts)
	fmt.Fprintf(b, "- **Total decisions**: %d\n", s.Decisions)
	fmt.Fprintf(b, "- **Total requirements completed**: %d\n", s.Requirements)
	fmt.Fprintf(b, "- **Total learnings**: %d\n\n", s.Learnings)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

var statLineRe = regexp.MustCompile(`\*\*(.+?)\*\*: (\d+)`)

func parseOverviewStats(content string, labels map[string]*int) {
	section := content
	if i := strings.Index(content, "## Overview"); i >= 0 {
		section = content[i:]
		if j := strings.Index(section[1:], "\n## "); j >= 0 {
			section = section[:j+1]
		}
	}
	for _, m := range statLineRe.FindAllStringSubmatch(section, -1) {
		if dst, ok := labels[m[1]]; ok {
			n, _ := strconv.Atoi(m[2])
			*dst = n
		}
	}
}

// ParseWeeklyStats reads the Overview counts back out of a weekly summary.
// This is what the monthly rollup aggregates.
func ParseWeeklyStats(content string) Stats {
	var s Stats
	parseOverviewStats(content, map[string]*int{
		"Prompts analyzed":       &s.Prompts,
		"Decisions made":         &s.Decisions,
		"Requirements completed": &s.Requirements,
		"Learnings captured":     &s.Learnings,
	})
	return s
}

// ParseMonthlyStats reads the Overview totals back out of a monthly summary.
func ParseMonthlyStats(content string) Stats {
	var s Stats
	parseOverviewStats(content, map[string]*int{
		"Total prompts":                &s.Prompts,
		"Total decisions":              &s.Decisions,
		"Total requirements completed": &s.Requirements,
		"Total learnings":              &s.Learnings,
	})
	return s
}

type stateEntry struct {
	GeneratedAt time.Time `json:"generated_at"`
	Complete    bool      `json:"complete"`
}

func (m *Manager) loadState() map[string]stateEntry {
	state := map[string]stateEntry{}
	store.ReadJSON(m.Project.SummaryStatePath(), &state)
	return state
}

// Result reports one summary generation.
type Result struct {
	Type      string
	Period    string
	Content   string
	Missing   []string
	Complete  bool
	FromCache bool
}

// Generate produces (or returns the cached) summary for a period. The cache
// is reused unless force is set or a child source changed since the summary
// was generated.
func (m *Manager) Generate(periodType, period string, force bool, now time.Time) (*Result, error) {
	path := m.Project.SummaryFile(periodType, period)
	stateKey := periodType + "/" + period
	state := m.loadState()

	if !force {
		if content, ok := store.ReadFile(path); ok && !m.stale(periodType, period, state[stateKey].GeneratedAt) {
			return &Result{
				Type: periodType, Period: period, Content: content,
				Complete: state[stateKey].Complete, FromCache: true,
			}, nil
		}
	}

	res := &Result{Type: periodType, Period: period}
	switch periodType {
	case Weekly:
		data, err := m.CollectWeek(period)
		if err != nil {
			return nil, err
		}
		res.Content = RenderWeekly(data, now)
		res.Complete = true
	case Monthly:
		data, err := m.CollectMonth(period)
		if err != nil {
			return nil, err
		}
		res.Content = RenderMonthly(data, now)
		res.Missing = data.Missing
		res.Complete = data.Complete()
	case Yearly:
		data, err := m.CollectYear(period)
		if err != nil {
			return nil, err
		}
		res.Content = RenderYearly(data, now)
		res.Missing = data.Missing
		res.Complete = data.Complete()
	default:
		return nil, fmt.Errorf("unknown period type %q", periodType)
	}

	if err := store.WriteFileAtomic(path, []byte(res.Content)); err != nil {
		return nil, err
	}
	state[stateKey] = stateEntry{GeneratedAt: now, Complete: res.Complete}
	if err := store.WriteJSON(m.Project.SummaryStatePath(), state); err != nil {
		return nil, err
	}
	return res, nil
}

// stale reports whether any child source file changed after the summary was
// generated.
func (m *Manager) stale(periodType, period string, generatedAt time.Time) bool {
	if generatedAt.IsZero() {
		return true
	}
	for _, src := range m.sources(periodType, period) {
		info, err := os.Stat(src)
		if err != nil {
			continue
		}
		if info.ModTime().After(generatedAt) {
			return true
		}
	}
	return false
}

func (m *Manager) sources(periodType, period string) []string {
	var out []string
	switch periodType {
	case Weekly:
		start, end, err := WeekRange(period)
		if err != nil {
			return nil
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			out = append(out, m.Project.PromptFile(d))
			if m.Global != nil {
				out = append(out, m.Global.DailyFile(d))
			}
		}
		for _, slug := range m.Project.ListPRDs() {
			out = append(out, m.Project.PRDFile(slug))
		}
	case Monthly:
		weeks, err := WeeksInMonth(period)
		if err != nil {
			return nil
		}
		for _, w := range weeks {
			out = append(out, m.Project.SummaryFile(Weekly, w))
		}
	case Yearly:
		for _, mo := range MonthsInYear(period) {
			out = append(out, m.Project.SummaryFile(Monthly, mo))
		}
	}
	return out
}

// PendingPeriod names a summary that a period boundary made due.
type PendingPeriod struct {
	Type   string
	Period string
}

// Pending reports the previous periods whose summaries are due: on Mondays
// the previous week, on the 1st the previous month, on January 1st the
// previous year.
func (m *Manager) Pending(today time.Time) []PendingPeriod {
	var out []PendingPeriod
	exists := func(periodType, period string) bool {
		_, err := os.Stat(m.Project.SummaryFile(periodType, period))
		return err == nil
	}
	if IsWeekBoundary(today) {
		if p := PrevWeekID(today); !exists(Weekly, p) {
			out = append(out, PendingPeriod{Weekly, p})
		}
	}
	if IsMonthBoundary(today) {
		if p := PrevMonthID(today); !exists(Monthly, p) {
			out = append(out, PendingPeriod{Monthly, p})
		}
	}
	if IsYearBoundary(today) {
		if p := PrevYearID(today); !exists(Yearly, p) {
			out = append(out, PendingPeriod{Yearly, p})
		}
	}
	return out
}
