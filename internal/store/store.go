package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FeatureRule maps a path prefix to a feature slug. Rules are an ordered
// list; the first matching rule wins.
type FeatureRule struct {
	Prefix string `yaml:"prefix"`
	Slug   string `yaml:"slug"`
}

// CaptureConfig holds prompt capture settings.
type CaptureConfig struct {
	IndexCap int `yaml:"index_cap"`
}

// QuestionConfig holds open-question staleness settings.
type QuestionConfig struct {
	StaleAfterDays int `yaml:"stale_after_days"`
}

// ContextConfig holds character budgets for session-start context injection.
type ContextConfig struct {
	MaxPRDChars      int `yaml:"max_prd_chars"`
	MaxFullPRDs      int `yaml:"max_full_prds"`
	MaxRecentPrompts int `yaml:"max_recent_prompts"`
	MaxWeeklyChars   int `yaml:"max_weekly_chars"`
}

// Config holds scribe configuration.
type Config struct {
	Version   string         `yaml:"version"`
	Questions QuestionConfig `yaml:"questions,omitempty"`
	Capture   CaptureConfig  `yaml:"capture,omitempty"`
	Context   ContextConfig  `yaml:"context,omitempty"`
	Features  []FeatureRule  `yaml:"features,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version:   "1",
		Questions: QuestionConfig{StaleAfterDays: 7},
		Capture:   CaptureConfig{IndexCap: 1000},
		Context: ContextConfig{
			MaxPRDChars:      2000,
			MaxFullPRDs:      3,
			MaxRecentPrompts: 15,
			MaxWeeklyChars:   800,
		},
		Features: []FeatureRule{
			{Prefix: "src/auth/", Slug: "auth-system"},
			{Prefix: "src/api/", Slug: "api-integration"},
			{Prefix: "src/components/dashboard/", Slug: "user-dashboard"},
			{Prefix: "src/components/", Slug: "frontend"},
			{Prefix: "src/utils/", Slug: "utilities"},
			{Prefix: "tests/", Slug: "testing"},
			{Prefix: "docs/", Slug: "documentation"},
		},
	}
}

// Store represents the global scribe home (~/.scribe by default).
// It holds the daily learning logs, the learnings dedup index, and config.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the scribe home path, respecting the SCRIBE_HOME env var.
func Home() string {
	if h := os.Getenv("SCRIBE_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".scribe")
	}
	return filepath.Join(home, ".scribe")
}

// Init creates the scribe home directory structure.
func Init(home string, force bool) error {
	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err == nil && !force {
		return fmt.Errorf("scribe home already exists at %s (use --force to reinitialize)", home)
	}

	if err := os.MkdirAll(filepath.Join(home, "daily"), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(filepath.Join(home, "config.yaml"), data); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads an existing scribe home. Missing config fields are filled from
// defaults; a missing config file is not an error (hooks must work before
// `scribe init` has ever run).
func Load(home string) (*Store, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filepath.Join(home, "config.yaml"))
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("invalid config.yaml: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(home, "daily"), 0755); err != nil {
		return nil, err
	}
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := WriteFileAtomic(filepath.Join(s.Home, "config.yaml"), data); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetConfigValue sets a config value by dot-path key (e.g. "questions.stale_after_days").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "questions.stale_after_days":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 1 {
			return fmt.Errorf("questions.stale_after_days must be a positive integer")
		}
		s.Config.Questions.StaleAfterDays = n
	case "capture.index_cap":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 10 {
			return fmt.Errorf("capture.index_cap must be an integer >= 10")
		}
		s.Config.Capture.IndexCap = n
	case "context.max_prd_chars":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 100 {
			return fmt.Errorf("context.max_prd_chars must be an integer >= 100")
		}
		s.Config.Context.MaxPRDChars = n
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: questions.stale_after_days, capture.index_cap, context.max_prd_chars", key)
	}
	return s.SaveConfig()
}

// Path resolves a path within the scribe home.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// DailyFile returns the path of a day's learning log.
func (s *Store) DailyFile(day time.Time) string {
	return s.Path("daily", day.Format("2006-01-02")+".md")
}

// IndexPath returns the path of the learnings dedup index.
func (s *Store) IndexPath() string {
	return s.Path("learnings-index.json")
}

// LogPath returns the path of the hook activity log.
func (s *Store) LogPath() string {
	return s.Path("scribe.log")
}

// CheckHealth verifies the scribe home structure.
func CheckHealth(home string) []Issue {
	var issues []Issue

	p := filepath.Join(home, "daily")
	info, err := os.Stat(p)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
	} else if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"warning", fmt.Sprintf("no config.yaml (defaults in effect): %s", cfgPath)})
	} else {
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		}
	}

	return issues
}

// ReadFile reads a file, reporting missing files as ok=false rather than an error.
func ReadFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// WriteFileAtomic writes content via a temp file and rename so readers never
// observe a partially written document.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".scribe-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// AppendFile appends content to a file, creating parent directories as needed.
func AppendFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

// ReadJSON unmarshals a JSON file into v. Missing or malformed files report
// ok=false so callers can fall back to an empty value.
func ReadJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false
	}
	return true
}

// WriteJSON writes v as indented JSON, atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, append(data, '\n'))
}
