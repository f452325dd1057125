package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kestrelworks/scribe/internal/hooks"
	scribemcp "github.com/kestrelworks/scribe/internal/mcp"
	"github.com/kestrelworks/scribe/internal/prd"
	"github.com/kestrelworks/scribe/internal/prlink"
	"github.com/kestrelworks/scribe/internal/store"
	"github.com/kestrelworks/scribe/internal/summary"
	"github.com/kestrelworks/scribe/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "scribe",
		Short: "scribe — persistent project memory for AI-assisted development",
		Long: "A local CLI that captures requirements, decisions and questions from " +
			"conversation, maintains PRD documents per feature, and injects that memory " +
			"back into future sessions.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "memory", Title: "Memory Commands:"},
		&cobra.Group{ID: "pr", Title: "Pull Request Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	initC := initCmd()
	initC.GroupID = "core"
	doctorC := doctorCmd()
	doctorC.GroupID = "core"
	statusC := statusCmd()
	statusC.GroupID = "core"

	prdsC := prdsCmd()
	prdsC.GroupID = "memory"
	searchC := searchCmd()
	searchC.GroupID = "memory"
	digestC := digestCmd()
	digestC.GroupID = "memory"
	summaryC := summaryCmd()
	summaryC.GroupID = "memory"

	prC := prCmd()
	prC.GroupID = "pr"

	configC := configCmd()
	configC.GroupID = "config"

	rootCmd.AddCommand(initC)
	rootCmd.AddCommand(doctorC)
	rootCmd.AddCommand(statusC)
	rootCmd.AddCommand(prdsC)
	rootCmd.AddCommand(searchC)
	rootCmd.AddCommand(digestC)
	rootCmd.AddCommand(summaryC)
	rootCmd.AddCommand(prC)
	rootCmd.AddCommand(configC)
	rootCmd.AddCommand(hookCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(completionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadStore() (*store.Store, error) {
	s, err := store.Load(store.Home())
	if err != nil {
		return nil, fmt.Errorf("scribe not initialized — run 'scribe init' first: %w", err)
	}
	return s, nil
}

func openRunner() (*hooks.Runner, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return hooks.NewRunner(cwd, ui.Logger)
}

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// printMarkdown renders through glamour on a TTY and prints raw otherwise.
func printMarkdown(md string) {
	if isTTY() {
		fmt.Print(ui.Markdown(md))
		return
	}
	fmt.Print(md)
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize the scribe home directory",
		Long:    "Create the scribe home (~/.scribe by default) with daily/ and config.yaml. Per-project .scribe directories are created on first use.",
		Example: "  scribe init\n  scribe init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if force && isTTY() {
				ok, err := ui.Confirm(fmt.Sprintf("Reinitialize %s? config.yaml will be reset to defaults.", home))
				if err != nil {
					return err
				}
				if !ok {
					ui.Info("Aborted.")
					return nil
				}
			}
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.Success("scribe initialized")
			ui.Detail("Home:", home)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if the home directory already exists")
	return cmd
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check health of the global store and the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if _, err := loadStore(); err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			projectRoot := store.FindProjectRoot(cwd)

			ui.SectionHeader("Health Check")
			ui.KeyValue("Global", home)
			ui.KeyValue("Project", projectRoot)

			issues := store.CheckHealth(home)
			issues = append(issues, store.CheckProjectHealth(projectRoot)...)

			if len(issues) == 0 {
				ui.Success("Everything looks good")
				return nil
			}

			hasError := false
			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					hasError = true
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}
			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show project memory: stale questions, PRDs, linked branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			now := time.Now()
			threshold := r.Global.Config.Questions.StaleAfterDays

			var b strings.Builder
			b.WriteString("# Project Memory\n\n")

			type prdRow struct {
				slug string
				sum  prd.Summary
			}
			var rows []prdRow
			var stale []prd.StaleQuestion
			for _, slug := range r.Project.ListPRDs() {
				doc, err := r.PRDs.Load(slug)
				if err != nil {
					continue
				}
				rows = append(rows, prdRow{slug, prd.Summarize(doc)})
				stale = append(stale, prd.StaleQuestions(doc, now, threshold)...)
			}

			if len(stale) > 0 {
				sort.Slice(stale, func(i, j int) bool { return stale[i].Asked < stale[j].Asked })
				b.WriteString("## Stale Questions\n\n")
				for _, q := range stale {
					fmt.Fprintf(&b, "- **%s**: %s (%d days old)\n", q.Slug, q.Text, q.AgeDays)
				}
				b.WriteString("\n")
			}

			if len(rows) == 0 {
				b.WriteString("No PRDs yet. They are created as features come up in conversation.\n")
				printMarkdown(b.String())
				return nil
			}

			b.WriteString("## PRDs\n\n")
			b.WriteString("| PRD | Open | Done | Questions | Latest Decision |\n")
			b.WriteString("|-----|------|------|-----------|------------------|\n")
			for _, row := range rows {
				latest := row.sum.LatestDecision
				if latest == "" {
					latest = "-"
				}
				fmt.Fprintf(&b, "| %s | %d | %d | %d | %s |\n",
					row.slug, row.sum.OpenReqs, row.sum.DoneReqs, row.sum.OpenQuestions, latest)
			}
			b.WriteString("\n")

			if branches := prlink.New(r.Project).ActiveBranches(); len(branches) > 0 {
				b.WriteString("## Active Branches\n\n")
				for _, br := range branches {
					fmt.Fprintf(&b, "- `%s`\n", br)
				}
				b.WriteString("\n")
			}

			printMarkdown(b.String())
			return nil
		},
	}
}

func prdsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prds [slug]",
		Short: "List PRDs, or print one in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				doc, err := r.PRDs.Load(args[0])
				if err != nil {
					return err
				}
				printMarkdown(doc.Render())
				return nil
			}

			slugs := r.Project.ListPRDs()
			if len(slugs) == 0 {
				ui.EmptyState("No PRDs yet.")
				return nil
			}
			var tableRows [][]string
			for _, slug := range slugs {
				doc, err := r.PRDs.Load(slug)
				if err != nil {
					continue
				}
				sum := prd.Summarize(doc)
				tableRows = append(tableRows, []string{
					slug,
					doc.Title,
					fmt.Sprintf("%d open / %d done", sum.OpenReqs, sum.DoneReqs),
					fmt.Sprintf("%d", sum.OpenQuestions),
				})
			}
			ui.Table([]string{"SLUG", "TITLE", "REQUIREMENTS", "QUESTIONS"}, tableRows)
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "search <query>",
		Short:   "Search PRDs and the prompt history",
		Example: "  scribe search \"rate limiting\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			query := strings.ToLower(args[0])

			var files []string
			for _, slug := range r.Project.ListPRDs() {
				files = append(files, r.Project.PRDFile(slug))
			}
			if entries, err := os.ReadDir(r.Project.Path("prompts")); err == nil {
				var days []string
				for _, e := range entries {
					if strings.HasSuffix(e.Name(), ".md") {
						days = append(days, e.Name())
					}
				}
				sort.Sort(sort.Reverse(sort.StringSlice(days)))
				for _, name := range days {
					files = append(files, r.Project.Path("prompts", name))
				}
			}

			found := 0
			for _, file := range files {
				content, ok := store.ReadFile(file)
				if !ok {
					continue
				}
				rel := strings.TrimPrefix(file, r.Project.Root+string(os.PathSeparator))
				for i, line := range strings.Split(content, "\n") {
					if strings.Contains(strings.ToLower(line), query) {
						fmt.Printf("%s %s\n", ui.Dim(fmt.Sprintf("%s:%d", rel, i+1)), strings.TrimSpace(line))
						found++
					}
				}
			}
			if found == 0 {
				ui.EmptyState(fmt.Sprintf("No matches for %q.", args[0]))
			}
			return nil
		},
	}
}

func digestCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Show recent decisions across all PRDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			cutoff := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

			var b strings.Builder
			fmt.Fprintf(&b, "# Decisions — last %d days\n\n", days)
			total := 0
			for _, slug := range r.Project.ListPRDs() {
				doc, err := r.PRDs.Load(slug)
				if err != nil {
					continue
				}
				var recent []prd.Decision
				for _, d := range doc.Decisions {
					if d.Date >= cutoff {
						recent = append(recent, d)
					}
				}
				if len(recent) == 0 {
					continue
				}
				fmt.Fprintf(&b, "## %s\n\n", doc.Title)
				for _, d := range recent {
					fmt.Fprintf(&b, "- **%s** %s — %s\n", d.Date, d.Decision, d.Rationale)
				}
				b.WriteString("\n")
				total += len(recent)
			}
			if total == 0 {
				ui.EmptyState(fmt.Sprintf("No decisions in the last %d days.", days))
				return nil
			}
			printMarkdown(b.String())
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "How many days back to include")
	return cmd
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Generate and inspect periodic summaries",
	}
	cmd.AddCommand(summaryPeriodCmd(summary.Weekly, "weekly", "2026-W07"))
	cmd.AddCommand(summaryPeriodCmd(summary.Monthly, "monthly", "2026-02"))
	cmd.AddCommand(summaryPeriodCmd(summary.Yearly, "yearly", "2026"))
	cmd.AddCommand(summaryPendingCmd())
	return cmd
}

func summaryPeriodCmd(periodType, use, example string) *cobra.Command {
	var regenerate bool
	cmd := &cobra.Command{
		Use:     fmt.Sprintf("%s [period]", use),
		Short:   fmt.Sprintf("Generate the %s summary (current period when omitted)", use),
		Example: fmt.Sprintf("  scribe summary %s\n  scribe summary %s %s --regenerate", use, use, example),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			now := time.Now()
			period := currentPeriod(periodType, now)
			if len(args) == 1 {
				period = args[0]
			}

			result, err := r.Summaries.Generate(periodType, period, regenerate, now)
			if err != nil {
				return err
			}
			if result.FromCache {
				ui.Info(fmt.Sprintf("Using cached %s summary for %s", periodType, period))
			} else {
				ui.Success(fmt.Sprintf("Generated %s summary for %s", periodType, period))
			}
			if !result.Complete {
				ui.Warning(fmt.Sprintf("Partial: missing %s", strings.Join(result.Missing, ", ")))
			}
			ui.Detail("File:", r.Project.SummaryFile(periodType, period))
			printMarkdown(result.Content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Regenerate even if a cached summary exists")
	return cmd
}

func currentPeriod(periodType string, now time.Time) string {
	switch periodType {
	case summary.Monthly:
		return summary.MonthID(now)
	case summary.Yearly:
		return summary.YearID(now)
	default:
		return summary.WeekID(now)
	}
}

func summaryPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List summaries due at the current period boundary",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			pending := r.Summaries.Pending(time.Now())
			if len(pending) == 0 {
				ui.EmptyState("No summaries pending.")
				return nil
			}
			for _, p := range pending {
				ui.Info(fmt.Sprintf("%s %s", p.Type, p.Period))
			}
			return nil
		},
	}
}

func prCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Link branches to PRDs and complete requirements on merge",
	}
	cmd.AddCommand(prLinkCmd())
	cmd.AddCommand(prMergedCmd())
	cmd.AddCommand(prContextCmd())
	return cmd
}

// resolveBranch uses the flag when set, otherwise asks git.
func resolveBranch(flag string, projectPath string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	branch := prlink.CurrentBranch(projectPath)
	if branch == "" {
		return "", fmt.Errorf("not on a branch; pass --branch")
	}
	return branch, nil
}

func prLinkCmd() *cobra.Command {
	var branch, slug string
	var reqs []string
	var number int
	var url string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link the current branch to a PRD and its requirements",
		Example: `  scribe pr link
  scribe pr link --branch feat/auth --prd auth-system --reqs "Support SSO"
  scribe pr link --number 42 --url https://github.com/org/repo/pull/42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			linker := prlink.New(r.Project)
			now := time.Now()

			branch, err = resolveBranch(branch, r.Project.ProjectPath)
			if err != nil {
				return err
			}

			if slug == "" {
				files := prlink.ModifiedFiles(r.Project.ProjectPath)
				slug, err = linker.ResolveFeature(branch, files, r.Global.Config.Features)
				if err != nil {
					if errors.Is(err, prlink.ErrAmbiguousFeature) {
						return fmt.Errorf("could not pick a PRD automatically; pass --prd (known: %s)",
							strings.Join(r.Project.ListPRDs(), ", "))
					}
					return err
				}
			}
			doc, err := r.PRDs.Load(slug)
			if err != nil {
				return err
			}

			if len(reqs) == 0 {
				if !isTTY() {
					return fmt.Errorf("no requirements given; pass --reqs")
				}
				items := make([]ui.RequirementItem, len(doc.Requirements))
				for i, req := range doc.Requirements {
					items[i] = ui.RequirementItem{Text: req.Text, Done: req.Done, Selected: !req.Done}
				}
				selected, err := ui.SelectRequirements(fmt.Sprintf("Requirements addressed by %s", branch), items)
				if err != nil {
					return err
				}
				for _, i := range selected {
					reqs = append(reqs, doc.Requirements[i].Text)
				}
			}
			if len(reqs) == 0 {
				return fmt.Errorf("no requirements selected")
			}

			if err := linker.Link(branch, slug, reqs, now); err != nil {
				return err
			}
			if files := prlink.ModifiedFiles(r.Project.ProjectPath); len(files) > 0 {
				changed := false
				for _, f := range files {
					if doc.AddRelatedFile(f) {
						changed = true
					}
				}
				if changed {
					if err := r.PRDs.Save(doc); err != nil {
						return err
					}
				}
			}
			if number > 0 {
				pr := prd.PullRequest{
					Number:       number,
					URL:          url,
					Branch:       branch,
					Status:       "Open",
					Requirements: prlink.RequirementsCell(reqs),
				}
				if err := linker.AddPRToDoc(slug, pr); err != nil {
					return err
				}
			}
			ui.Success(fmt.Sprintf("Linked %s to %s (%d requirements)", branch, slug, len(reqs)))
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to link (default: current branch)")
	cmd.Flags().StringVar(&slug, "prd", "", "PRD slug (default: resolved from branch and modified files)")
	cmd.Flags().StringSliceVar(&reqs, "reqs", nil, "Requirements this branch addresses")
	cmd.Flags().IntVar(&number, "number", 0, "Pull request number to record in the PRD")
	cmd.Flags().StringVar(&url, "url", "", "Pull request URL")
	return cmd
}

func prMergedCmd() *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "merged",
		Short: "Mark a linked branch merged and complete its requirements",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			linker := prlink.New(r.Project)

			branch, err = resolveBranch(branch, r.Project.ProjectPath)
			if err != nil {
				return err
			}

			done, err := linker.CompleteMerged(branch, time.Now())
			if err != nil {
				if errors.Is(err, prlink.ErrNotFound) {
					ui.Warning(fmt.Sprintf("No PRD link for %s; nothing to complete.", branch))
					return nil
				}
				return err
			}
			if len(done) == 0 {
				ui.Info(fmt.Sprintf("%s already merged or no open requirements to complete.", branch))
				return nil
			}
			ui.Success(fmt.Sprintf("Completed %d requirement(s) for %s", len(done), branch))
			for _, req := range done {
				ui.Detail("done:", req)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "Branch that merged (default: current branch)")
	return cmd
}

func prContextCmd() *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print PRD context for a linked branch (for PR descriptions)",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			linker := prlink.New(r.Project)

			branch, err = resolveBranch(branch, r.Project.ProjectPath)
			if err != nil {
				return err
			}
			ctx, err := linker.Context(branch)
			if err != nil {
				return err
			}
			fmt.Print(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to describe (default: current branch)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit scribe configuration",
	}
	cmd.AddCommand(configGetCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Display configuration (the whole file, or one key)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				data, err := yaml.Marshal(s.Config)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				fmt.Print(string(data))
				return nil
			}
			switch args[0] {
			case "questions.stale_after_days":
				fmt.Println(s.Config.Questions.StaleAfterDays)
			case "capture.index_cap":
				fmt.Println(s.Config.Capture.IndexCap)
			case "context.max_prd_chars":
				fmt.Println(s.Config.Context.MaxPRDChars)
			default:
				return fmt.Errorf("unknown config key: %s", args[0])
			}
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a scribe configuration value. Valid keys: questions.stale_after_days, capture.index_cap, context.max_prd_chars.",
		Example: `  scribe config set questions.stale_after_days 14
  scribe config set capture.index_cap 2000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func hookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook",
		Short:  "Host lifecycle hook entry points (JSON payload on stdin)",
		Hidden: true,
	}
	cmd.AddCommand(hookEventCmd("prompt", func(r *hooks.Runner, p hooks.Payload) error {
		return r.Prompt(p)
	}))
	cmd.AddCommand(hookEventCmd("stop", func(r *hooks.Runner, p hooks.Payload) error {
		return r.Stop(p)
	}))
	cmd.AddCommand(hookEventCmd("session-end", func(r *hooks.Runner, p hooks.Payload) error {
		return r.SessionEnd(p)
	}))
	cmd.AddCommand(hookEventCmd("pre-compact", func(r *hooks.Runner, p hooks.Payload) error {
		return r.PreCompact(p)
	}))
	cmd.AddCommand(hookSessionStartCmd())
	return cmd
}

// hookEventCmd builds a hook subcommand. Hooks never block the host: every
// failure is logged to ~/.scribe/scribe.log and the command exits 0.
func hookEventCmd(event string, handler func(*hooks.Runner, hooks.Payload) error) *cobra.Command {
	return &cobra.Command{
		Use:   event,
		Short: fmt.Sprintf("Handle the %s event", event),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeFn := hookLogger()
			defer closeFn()

			r, err := hookRunner(logger)
			if err != nil {
				logger.Error("hook setup failed", "event", event, "err", err)
				return nil
			}
			p, err := hooks.ReadPayload(os.Stdin)
			if err != nil {
				logger.Error("hook payload unreadable", "event", event, "err", err)
				return nil
			}
			if err := handler(r, p); err != nil {
				logger.Error("hook failed", "event", event, "err", err)
			}
			return nil
		},
	}
}

func hookSessionStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session-start",
		Short: "Handle the session-start event and print memory context",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeFn := hookLogger()
			defer closeFn()

			r, err := hookRunner(logger)
			if err != nil {
				logger.Error("hook setup failed", "event", "session-start", "err", err)
				return nil
			}
			p, err := hooks.ReadPayload(os.Stdin)
			if err != nil {
				logger.Error("hook payload unreadable", "event", "session-start", "err", err)
				return nil
			}
			ctx, err := r.SessionStart(p)
			if err != nil {
				logger.Error("hook failed", "event", "session-start", "err", err)
				return nil
			}
			// stdout is the context-injection channel
			fmt.Println(ctx)
			return nil
		},
	}
}

func hookLogger() (logger *log.Logger, closeFn func()) {
	path := filepath.Join(store.Home(), "scribe.log")
	l, c, err := ui.FileLogger(path)
	if err != nil {
		return ui.Logger, func() {}
	}
	return l, c
}

func hookRunner(logger *log.Logger) (*hooks.Runner, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return hooks.NewRunner(cwd, logger)
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run scribe as an MCP server over stdio",
		Long:  "Start scribe as a Model Context Protocol (MCP) server over stdio. This lets MCP-compatible tools query and update project memory directly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			server := scribemcp.NewServer(r, version)
			return server.Run(context.Background())
		},
	})
	return cmd
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
