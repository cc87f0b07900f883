package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/wisdomizer/internal/api"
	"github.com/ziadkadry99/wisdomizer/internal/config"
	"github.com/ziadkadry99/wisdomizer/internal/db"
	"github.com/ziadkadry99/wisdomizer/internal/diagrams"
	"github.com/ziadkadry99/wisdomizer/internal/format"
	"github.com/ziadkadry99/wisdomizer/internal/logging"
	"github.com/ziadkadry99/wisdomizer/internal/notify"
	"github.com/ziadkadry99/wisdomizer/internal/prefs"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `wisdomizer init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger logs to w at the configured level, or debug with --verbose.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level := cfg.Level()
	if verbose {
		level = zerolog.DebugLevel
	}
	pretty := false
	if f, ok := w.(*os.File); ok {
		pretty = isatty.IsTerminal(f.Fd())
	}
	return logging.New(w, level, pretty)
}

// newFileLogger logs to the data directory, for commands that own the
// terminal. The returned func closes the file.
func newFileLogger(cfg *config.Config) (zerolog.Logger, func()) {
	f, err := logging.OpenFile(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; logging to stderr\n", err)
		return newLogger(cfg, os.Stderr), func() {}
	}
	return newLogger(cfg, f), func() { f.Close() }
}

func newClient(cfg *config.Config, logger zerolog.Logger) *api.Client {
	return api.NewClient(cfg.ServerURL,
		api.WithSignInPath(cfg.SignInPath),
		api.WithLogger(logger.With().Str("component", "api").Logger()),
	)
}

func newNotifier(cfg *config.Config, logger zerolog.Logger) *notify.Service {
	return notify.NewService(
		notify.WithDefaults(notify.Position(cfg.Notifications.Position), cfg.Notifications.Duration),
		notify.WithLogger(logger),
	)
}

func newFormatter(cfg *config.Config, logger zerolog.Logger) *format.Formatter {
	return format.New(format.WithStyle(cfg.Markdown.Style), format.WithLogger(logger))
}

// newRenderer returns the configured diagram renderer, or nil when
// diagrams are disabled.
func newRenderer(cfg *config.Config) diagrams.Renderer {
	if cfg.Diagrams.Command == "" {
		return nil
	}
	r := diagrams.NewCLIRenderer(cfg.Diagrams.Command, cfg.Diagrams.Timeout)
	r.Theme = cfg.Diagrams.Theme
	return r
}

// openPrefs opens local storage in the data directory.
func openPrefs(cfg *config.Config) (*prefs.Store, func(), error) {
	database, err := db.OpenDir(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening local storage: %w", err)
	}
	return prefs.NewStore(database), func() { database.Close() }, nil
}

// loadTopics fetches the server's topic list. A failure is logged and
// leaves the sidebar empty; the chat still works.
func loadTopics(ctx context.Context, client *api.Client, logger zerolog.Logger) []api.Topic {
	topics, err := client.Topics(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("loading topics")
		return nil
	}
	return topics
}
