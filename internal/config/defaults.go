package config

import (
	"os"
	"path/filepath"
	"time"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".wisdomizer.yml"

// DefaultServerURL is where a locally run chat server listens.
const DefaultServerURL = "http://localhost:8000"

// DefaultExcludes are glob patterns skipped by the render command.
var DefaultExcludes = []string{
	"node_modules/**",
	".git/**",
	"vendor/**",
	"dist/**",
	"build/**",
}

// DefaultDataDir is where local storage lives: the user config directory
// when there is one, else the working directory.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "wisdomizer")
	}
	return ".wisdomizer"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  DefaultServerURL,
		SignInPath: "/auth/signin",
		DataDir:    DefaultDataDir(),
		LogLevel:   "info",
		Notifications: NotificationsConfig{
			Position: "top-right",
			Duration: 5 * time.Second,
		},
		Diagrams: DiagramsConfig{
			Command:  "mmdc",
			Theme:    "default",
			Timeout:  30 * time.Second,
			Debounce: 100 * time.Millisecond,
			Recheck:  500 * time.Millisecond,
		},
		UI: UIConfig{
			Addr: "127.0.0.1:8765",
		},
		Markdown: MarkdownConfig{
			Style:    "github",
			Terminal: true,
		},
		Render: RenderConfig{
			OutputDir: "site",
			Include:   []string{"**/*.md", "**/*.markdown"},
			Exclude:   DefaultExcludes,
		},
	}
}
