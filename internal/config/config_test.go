package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("expected default server_url %q, got %q", DefaultServerURL, cfg.ServerURL)
	}
	if cfg.Notifications.Position != "top-right" || cfg.Notifications.Duration != 5*time.Second {
		t.Errorf("unexpected notification defaults: %+v", cfg.Notifications)
	}
	if cfg.Diagrams.Debounce != 100*time.Millisecond || cfg.Diagrams.Recheck != 500*time.Millisecond {
		t.Errorf("unexpected diagram delays: %+v", cfg.Diagrams)
	}
	if cfg.Render.OutputDir != "site" {
		t.Errorf("expected default render.output_dir %q, got %q", "site", cfg.Render.OutputDir)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wisdomizer.yml")

	original := DefaultConfig()
	original.ServerURL = "https://chat.example.com"
	original.Notifications.Position = "bottom-left"
	original.Notifications.Duration = 0
	original.Diagrams.Command = ""
	original.Diagrams.Timeout = 45 * time.Second
	original.Render.Include = []string{"notes/**/*.md", "*.md"}
	original.Markdown.Terminal = false

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "timeout: 45s") {
		t.Errorf("durations should be saved as strings:\n%s", data)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.ServerURL != original.ServerURL {
		t.Errorf("server_url: got %q, want %q", loaded.ServerURL, original.ServerURL)
	}
	if loaded.Notifications != original.Notifications {
		t.Errorf("notifications: got %+v, want %+v", loaded.Notifications, original.Notifications)
	}
	if loaded.Diagrams != original.Diagrams {
		t.Errorf("diagrams: got %+v, want %+v", loaded.Diagrams, original.Diagrams)
	}
	if loaded.Markdown.Terminal {
		t.Error("markdown.terminal: got true, want false")
	}
	if len(loaded.Render.Include) != len(original.Render.Include) {
		t.Fatalf("include length: got %d, want %d", len(loaded.Render.Include), len(original.Render.Include))
	}
	for i, v := range loaded.Render.Include {
		if v != original.Render.Include[i] {
			t.Errorf("include[%d]: got %q, want %q", i, v, original.Render.Include[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("expected default server_url, got %q", cfg.ServerURL)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yml")
	if err := os.WriteFile(path, []byte("diagrams:\n  theme: dark\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Diagrams.Theme != "dark" {
		t.Errorf("theme: got %q, want dark", cfg.Diagrams.Theme)
	}
	if cfg.Diagrams.Command != "mmdc" || cfg.UI.Addr == "" {
		t.Errorf("defaults lost: %+v %+v", cfg.Diagrams, cfg.UI)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("WISDOMIZER_SERVER_URL", "https://override.example.com")
	t.Setenv("WISDOMIZER_UI__ADDR", "0.0.0.0:9000")
	t.Setenv("WISDOMIZER_NOTIFICATIONS__DURATION", "2s")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ServerURL != "https://override.example.com" {
		t.Errorf("env override failed: got %q", loaded.ServerURL)
	}
	if loaded.UI.Addr != "0.0.0.0:9000" {
		t.Errorf("nested env override failed: got %q", loaded.UI.Addr)
	}
	if loaded.Notifications.Duration != 2*time.Second {
		t.Errorf("duration override failed: got %v", loaded.Notifications.Duration)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	os.WriteFile(path, []byte("server_url: [unterminated"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty server", func(c *Config) { c.ServerURL = "" }, "server_url is required"},
		{"bad scheme", func(c *Config) { c.ServerURL = "ftp://host" }, "invalid server_url"},
		{"no host", func(c *Config) { c.ServerURL = "http://" }, "invalid server_url"},
		{"relative sign in", func(c *Config) { c.SignInPath = "auth" }, "sign_in_path"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "invalid log_level"},
		{"bad position", func(c *Config) { c.Notifications.Position = "middle" }, "invalid notifications.position"},
		{"empty position", func(c *Config) { c.Notifications.Position = "" }, ""},
		{"negative duration", func(c *Config) { c.Notifications.Duration = -time.Second }, "notifications.duration"},
		{"negative debounce", func(c *Config) { c.Diagrams.Debounce = -1 }, "diagram timings"},
		{"empty addr", func(c *Config) { c.UI.Addr = "" }, "ui.addr"},
		{"empty output", func(c *Config) { c.Render.OutputDir = "" }, "render.output_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	if cfg.Level().String() != "debug" {
		t.Errorf("Level() = %v", cfg.Level())
	}
	cfg.LogLevel = ""
	if cfg.Level().String() != "info" {
		t.Errorf("empty Level() = %v", cfg.Level())
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"WISDOMIZER_SERVER_URL":         "server_url",
		"WISDOMIZER_DIAGRAMS__COMMAND":  "diagrams.command",
		"WISDOMIZER_RENDER__OUTPUT_DIR": "render.output_dir",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"**/*.md", []string{"**/*.md"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
