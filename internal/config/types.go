package config

import "time"

// Config is the top-level wisdomizer configuration, corresponding to .wisdomizer.yml.
type Config struct {
	ServerURL     string              `yaml:"server_url" koanf:"server_url"`
	SignInPath    string              `yaml:"sign_in_path" koanf:"sign_in_path"`
	DataDir       string              `yaml:"data_dir" koanf:"data_dir"`
	LogLevel      string              `yaml:"log_level" koanf:"log_level"`
	Notifications NotificationsConfig `yaml:"notifications" koanf:"notifications"`
	Diagrams      DiagramsConfig      `yaml:"diagrams" koanf:"diagrams"`
	UI            UIConfig            `yaml:"ui" koanf:"ui"`
	Markdown      MarkdownConfig      `yaml:"markdown" koanf:"markdown"`
	Render        RenderConfig        `yaml:"render" koanf:"render"`
}

// NotificationsConfig sets where toasts appear and how long they stay.
type NotificationsConfig struct {
	Position string        `yaml:"position" koanf:"position"`
	Duration time.Duration `yaml:"duration" koanf:"duration"`
}

// DiagramsConfig configures the mermaid-cli renderer. An empty Command
// disables diagram rendering.
type DiagramsConfig struct {
	Command  string        `yaml:"command" koanf:"command"`
	Theme    string        `yaml:"theme" koanf:"theme"`
	Timeout  time.Duration `yaml:"timeout" koanf:"timeout"`
	Debounce time.Duration `yaml:"debounce" koanf:"debounce"`
	Recheck  time.Duration `yaml:"recheck" koanf:"recheck"`
}

// UIConfig holds settings for the local browser UI.
type UIConfig struct {
	Addr string `yaml:"addr" koanf:"addr"`
}

// MarkdownConfig holds formatting settings.
type MarkdownConfig struct {
	Style    string `yaml:"style" koanf:"style"`
	Terminal bool   `yaml:"terminal" koanf:"terminal"`
}

// RenderConfig holds defaults for the render command.
type RenderConfig struct {
	OutputDir string   `yaml:"output_dir" koanf:"output_dir"`
	Title     string   `yaml:"title" koanf:"title"`
	Include   []string `yaml:"include" koanf:"include"`
	Exclude   []string `yaml:"exclude" koanf:"exclude"`
}
