// Package ui owns scribe's terminal output: lipgloss styles, the structured
// logger, tables, and the interactive bubbletea prompts.
package ui

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Logger is the shared structured logger, writing to stderr.
var Logger *log.Logger

// Styles — initialized in Init().
var (
	headerStyle  lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style
	boldStyle    lipgloss.Style
	promptStyle  lipgloss.Style
	accentStyle  lipgloss.Style
)

// Init sets up color detection, lipgloss styles, and the structured logger.
// Call this once at CLI startup.
func Init(noColorFlag bool) {
	noColor := noColorFlag || os.Getenv("NO_COLOR") != ""

	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle = lipgloss.NewStyle().Faint(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))

	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})
	if noColor {
		Logger.SetStyles(log.DefaultStyles())
	}
}

// FileLogger returns a logger appending to the given path. Hook commands log
// here: stdout is reserved for context-injection output and stderr is shown
// to the host, so neither may carry log noise.
func FileLogger(path string) (*log.Logger, func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	l := log.NewWithOptions(f, log.Options{ReportTimestamp: true})
	l.SetStyles(log.DefaultStyles())
	return l, func() { f.Close() }, nil
}

func Bold(s string) string   { return boldStyle.Render(s) }
func Dim(s string) string    { return dimStyle.Render(s) }
func Red(s string) string    { return errorStyle.Render(s) }
func Green(s string) string  { return successStyle.Render(s) }
func Yellow(s string) string { return warningStyle.Render(s) }

// Success prints a green check with a message.
func Success(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", successStyle.Render("✓"), msg)
}

// Warning prints a styled warning message.
func Warning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), msg)
}

// Error prints a styled error message.
func Error(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), msg)
}

// Info prints a styled informational message.
func Info(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", accentStyle.Render("▸"), msg)
}

// Table prints a formatted table with headers and rows.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, boldStyle.Render(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// Detail prints an indented key-value detail line.
func Detail(key, value string) {
	label := dimStyle.Render(fmt.Sprintf("  %s", key))
	fmt.Fprintf(os.Stderr, "%s %s\n", label, value)
}

// KeyValue prints a bold key with a value, for structured output blocks.
func KeyValue(key, value string) {
	fmt.Fprintf(os.Stderr, "  %s  %s\n", boldStyle.Render(key), value)
}

// SectionHeader prints a styled section divider with a label.
func SectionHeader(label string) {
	line := headerStyle.Render(fmt.Sprintf("── %s ──", label))
	fmt.Fprintf(os.Stderr, "\n%s\n\n", line)
}

// EmptyState prints a styled message for empty results.
func EmptyState(msg string) {
	fmt.Fprintf(os.Stderr, "  %s\n", dimStyle.Render(msg))
}

// =============================================================================
// Bubbletea-based interactive prompts
// =============================================================================

// confirmModel is a bubbletea model for y/n confirmation.
type confirmModel struct {
	prompt   string
	cursor   int // 0 = yes, 1 = no
	accepted bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y":
			m.accepted = true
			return m, tea.Quit
		case "n", "N":
			m.accepted = false
			return m, tea.Quit
		case "left", "h":
			m.cursor = 0
		case "right", "l":
			m.cursor = 1
		case "enter", " ":
			m.accepted = m.cursor == 0
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.accepted = false
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	var yes, no string
	if m.cursor == 0 {
		yes = successStyle.Render("▸ Yes ")
		no = dimStyle.Render("  No  ")
	} else {
		yes = dimStyle.Render("  Yes ")
		no = errorStyle.Render("▸ No  ")
	}
	return fmt.Sprintf("%s\n\n  %s  %s\n\n%s",
		promptStyle.Render(m.prompt),
		yes, no,
		dimStyle.Render("  ←/→ to select • enter to confirm • y/n for quick select"))
}

// Confirm prompts the user with a yes/no question and returns the response.
func Confirm(prompt string) (bool, error) {
	m := confirmModel{prompt: prompt, cursor: 0}
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	fmt.Fprintln(os.Stderr) // newline after prompt
	return result.(confirmModel).accepted, nil
}

// RequirementItem represents a PRD requirement for selection.
type RequirementItem struct {
	Text     string
	Done     bool
	Selected bool
}

// selectRequirementsModel is a bubbletea model for multi-select requirement list.
type selectRequirementsModel struct {
	title        string
	requirements []RequirementItem
	cursor       int
}

func (m selectRequirementsModel) Init() tea.Cmd { return nil }

func (m selectRequirementsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.requirements)-1 {
				m.cursor++
			}
		case " ", "x":
			m.requirements[m.cursor].Selected = !m.requirements[m.cursor].Selected
		case "a":
			for i := range m.requirements {
				m.requirements[i].Selected = true
			}
		case "n":
			for i := range m.requirements {
				m.requirements[i].Selected = false
			}
		case "enter":
			return m, tea.Quit
		case "ctrl+c", "esc":
			// Cancel - deselect all
			for i := range m.requirements {
				m.requirements[i].Selected = false
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m selectRequirementsModel) View() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n  %s\n", boldStyle.Render(m.title)))
	b.WriteString(fmt.Sprintf("  %s\n\n", dimStyle.Render("↑/↓ navigate • space toggle • a all • n none • enter confirm")))

	for i, r := range m.requirements {
		cursor := "  "
		if i == m.cursor {
			cursor = promptStyle.Render("▸ ")
		}

		checkbox := "[ ]"
		if r.Selected {
			checkbox = successStyle.Render("[✓]")
		}

		text := r.Text
		if len(text) > 60 {
			text = text[:60] + ".."
		}
		if r.Done {
			text = dimStyle.Render(text + " (done)")
		}

		b.WriteString(fmt.Sprintf("%s%s  %s\n", cursor, checkbox, text))
	}

	return b.String()
}

// SelectRequirements displays an interactive requirement selection interface.
// Open requirements start selected; returns the indices of selected items.
func SelectRequirements(title string, requirements []RequirementItem) ([]int, error) {
	if len(requirements) == 0 {
		return nil, nil
	}

	for i := range requirements {
		requirements[i].Selected = !requirements[i].Done
	}

	m := selectRequirementsModel{title: title, requirements: requirements, cursor: 0}
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(os.Stderr) // newline after prompt

	final := result.(selectRequirementsModel)
	var selected []int
	for i, r := range final.requirements {
		if r.Selected {
			selected = append(selected, i)
		}
	}
	return selected, nil
}
