// Package config loads and validates .wisdomizer.yml.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/wisdomizer/internal/notify"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: WISDOMIZER_DIAGRAMS__COMMAND sets diagrams.command.
const EnvPrefix = "WISDOMIZER_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (WISDOMIZER_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps WISDOMIZER_UI__ADDR to ui.addr.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server_url %q: must be an http or https URL", c.ServerURL)
	}

	if c.SignInPath != "" && !strings.HasPrefix(c.SignInPath, "/") {
		return fmt.Errorf("sign_in_path must start with /")
	}

	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("invalid log_level %q", c.LogLevel)
		}
	}

	if p := notify.Position(c.Notifications.Position); p != "" && notify.NormalizePosition(p) != p {
		return fmt.Errorf("invalid notifications.position %q: must be one of top, bottom, top-left, top-right, bottom-left, bottom-right", p)
	}
	if c.Notifications.Duration < 0 {
		return fmt.Errorf("notifications.duration must be non-negative")
	}

	if c.Diagrams.Timeout < 0 || c.Diagrams.Debounce < 0 || c.Diagrams.Recheck < 0 {
		return fmt.Errorf("diagram timings must be non-negative")
	}

	if c.UI.Addr == "" {
		return fmt.Errorf("ui.addr is required")
	}

	if c.Render.OutputDir == "" {
		return fmt.Errorf("render.output_dir is required")
	}

	return nil
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
