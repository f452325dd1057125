package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".scribe")

	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(home, "daily"))
	if err != nil || !info.IsDir() {
		t.Error("expected daily/ directory to exist")
	}
	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err != nil {
		t.Error("expected config.yaml to exist")
	}

	// Second init should fail without force
	if err := Init(home, false); err == nil {
		t.Error("expected error on duplicate init")
	}
	if err := Init(home, true); err != nil {
		t.Errorf("expected force init to succeed: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".scribe")
	Init(home, false)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Home != home {
		t.Errorf("expected Home=%s, got %s", home, s.Home)
	}
	if s.Config.Questions.StaleAfterDays != 7 {
		t.Errorf("default stale threshold = %d", s.Config.Questions.StaleAfterDays)
	}
}

func TestLoadBeforeInit(t *testing.T) {
	// Hooks run before `scribe init` has ever happened; Load must not fail.
	home := filepath.Join(t.TempDir(), ".scribe")
	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load on fresh home failed: %v", err)
	}
	if s.Config.Capture.IndexCap != 1000 {
		t.Errorf("defaults not applied: %+v", s.Config.Capture)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".scribe")
	os.MkdirAll(home, 0755)
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("questions:\n  stale_after_days: 14\n"), 0644)

	s, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if s.Config.Questions.StaleAfterDays != 14 {
		t.Errorf("explicit value lost: %d", s.Config.Questions.StaleAfterDays)
	}
	if s.Config.Context.MaxPRDChars != 2000 {
		t.Errorf("missing fields should fall back to defaults: %d", s.Config.Context.MaxPRDChars)
	}
}

func TestSetConfigValue(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".scribe")
	Init(home, false)
	s, _ := Load(home)

	if err := s.SetConfigValue("questions.stale_after_days", "14"); err != nil {
		t.Fatal(err)
	}
	reloaded, _ := Load(home)
	if reloaded.Config.Questions.StaleAfterDays != 14 {
		t.Errorf("value not persisted: %d", reloaded.Config.Questions.StaleAfterDays)
	}

	if err := s.SetConfigValue("nonsense.key", "1"); err == nil {
		t.Error("unknown key should error")
	}
	if err := s.SetConfigValue("capture.index_cap", "3"); err == nil {
		t.Error("below-minimum value should error")
	}
}

func TestHomeEnvVar(t *testing.T) {
	t.Setenv("SCRIBE_HOME", "/custom/path")
	if got := Home(); got != "/custom/path" {
		t.Errorf("Home() = %s, want /custom/path", got)
	}
}

func TestDailyFile(t *testing.T) {
	s := &Store{Home: "/tmp/.scribe"}
	day := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	want := filepath.Join("/tmp/.scribe", "daily", "2026-02-10.md")
	if got := s.DailyFile(day); got != want {
		t.Errorf("DailyFile() = %s, want %s", got, want)
	}
}

func TestCheckHealth(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".scribe")
	Init(home, false)

	if issues := CheckHealth(home); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}

	os.RemoveAll(filepath.Join(home, "daily"))
	if issues := CheckHealth(home); len(issues) == 0 {
		t.Error("expected issues after removing daily dir")
	}

	os.MkdirAll(filepath.Join(home, "daily"), 0755)
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte(":\tnot yaml"), 0644)
	found := false
	for _, issue := range CheckHealth(home) {
		if issue.Severity == "error" {
			found = true
		}
	}
	if !found {
		t.Error("expected error for invalid config.yaml")
	}
}

func TestWriteFileAtomicAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file.md")

	if err := WriteFileAtomic(path, []byte("hello\n")); err != nil {
		t.Fatal(err)
	}
	if err := AppendFile(path, "world\n"); err != nil {
		t.Fatal(err)
	}
	content, ok := ReadFile(path)
	if !ok || content != "hello\nworld\n" {
		t.Errorf("content = %q", content)
	}

	if _, ok := ReadFile(filepath.Join(t.TempDir(), "missing.md")); ok {
		t.Error("missing file should report ok=false")
	}
}

func TestProjectStore(t *testing.T) {
	projectPath := t.TempDir()
	p, err := OpenProject(projectPath)
	if err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{"prds", "prompts"} {
		if info, err := os.Stat(filepath.Join(projectPath, ".scribe", dir)); err != nil || !info.IsDir() {
			t.Errorf("expected %s/ to exist", dir)
		}
	}

	day := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	if got := p.PromptFile(day); filepath.Base(got) != "2026-02-10.md" {
		t.Errorf("PromptFile() = %s", got)
	}
	if got := p.PRDFile("auth"); filepath.Base(got) != "auth.md" {
		t.Errorf("PRDFile() = %s", got)
	}

	if slugs := p.ListPRDs(); len(slugs) != 0 {
		t.Errorf("fresh project should have no PRDs: %v", slugs)
	}
	os.WriteFile(p.PRDFile("billing"), []byte("# Billing\n"), 0644)
	os.WriteFile(p.PRDFile("auth"), []byte("# Auth\n"), 0644)
	slugs := p.ListPRDs()
	if len(slugs) != 2 || slugs[0] != "auth" || slugs[1] != "billing" {
		t.Errorf("ListPRDs() = %v", slugs)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, ".git"), 0755)
	nested := filepath.Join(root, "src", "api")
	os.MkdirAll(nested, 0755)

	if got := FindProjectRoot(nested); got != root {
		t.Errorf("FindProjectRoot() = %s, want %s", got, root)
	}

	// No marker anywhere: fall back to the start dir
	lone := t.TempDir()
	if got := FindProjectRoot(lone); got != lone {
		t.Errorf("FindProjectRoot() = %s, want %s", got, lone)
	}
}
