package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wisdomizer/internal/diagrams"
	"github.com/ziadkadry99/wisdomizer/internal/page"
	"github.com/ziadkadry99/wisdomizer/internal/server"
	"github.com/ziadkadry99/wisdomizer/internal/session"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Serve the chat UI in the browser",
	Long:  `Starts a local web server with a live chat page. The page is kept up to date over a websocket while replies stream in.`,
	RunE:  runUI,
}

func init() {
	uiCmd.Flags().String("addr", "", "address to listen on (overrides config)")
	uiCmd.Flags().Bool("dev", false, "allow cross-origin requests from any origin")
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.UI.Addr = addr
	}
	dev, _ := cmd.Flags().GetBool("dev")
	logger := newLogger(cfg, os.Stderr)

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []page.Option{
		page.WithFormatter(newFormatter(cfg, logger)),
		page.WithLogger(logger.With().Str("component", "page").Logger()),
		page.WithBaseURL(cfg.ServerURL),
	}
	if r := newRenderer(cfg); r != nil {
		opts = append(opts, page.WithRenderer(r,
			diagrams.WithDelays(cfg.Diagrams.Debounce, cfg.Diagrams.Recheck),
			diagrams.WithLogger(logger.With().Str("component", "diagrams").Logger()),
		))
	}
	pg, err := page.New(opts...)
	if err != nil {
		return err
	}
	defer pg.Close()

	notifier := newNotifier(cfg, logger)
	unbind := pg.BindNotifications(notifier)
	defer unbind()

	store, closeStore, err := openPrefs(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client := newClient(cfg, logger)
	ctrl := session.New(client, pg,
		session.WithNotifier(notifier),
		session.WithPromptStore(store),
		session.WithLogger(logger.With().Str("component", "session").Logger()),
		session.WithContext(ctx),
	)
	ctrl.Seed(loadTopics(ctx, client, logger))

	srv := server.New(server.Config{Addr: cfg.UI.Addr, AllowAll: dev}, ctrl, pg, notifier, server.WithLogger(logger))

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down UI server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "wisdomizer %s chat UI at http://%s\n", Version, cfg.UI.Addr)
	fmt.Fprintf(os.Stderr, "  Server: %s\n", cfg.ServerURL)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
