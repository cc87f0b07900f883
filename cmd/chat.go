package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wisdomizer/internal/console"
	"github.com/ziadkadry99/wisdomizer/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	Long:  `Starts an interactive chat with the configured server. Replies stream in as they arrive; type /help for topic and session commands.`,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().String("topic", "", "open the topic with this uuid")
	chatCmd.Flags().Bool("raw", false, "print replies as plain text instead of rendered Markdown")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := newFileLogger(cfg)
	defer closeLog()

	// SIGTERM ends the session; Ctrl+C is left to the console, which uses
	// it to stop a reply or leave the prompt.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	raw, _ := cmd.Flags().GetBool("raw")
	term := console.NewTerminal(cmd.OutOrStdout(),
		console.WithMarkdown(cfg.Markdown.Terminal && !raw),
		console.WithTerminalLogger(logger),
	)

	notifier := newNotifier(cfg, logger)
	unbind := term.BindNotifications(notifier)
	defer unbind()

	store, closeStore, err := openPrefs(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client := newClient(cfg, logger)
	ctrl := session.New(client, term,
		session.WithNotifier(notifier),
		session.WithPromptStore(store),
		session.WithLogger(logger.With().Str("component", "session").Logger()),
		session.WithContext(ctx),
	)
	ctrl.Seed(loadTopics(ctx, client, logger))

	if id, _ := cmd.Flags().GetString("topic"); id != "" {
		name := id
		for _, t := range ctrl.Snapshot().Topics {
			if t.ID == id {
				name = t.Title
			}
		}
		if err := ctrl.SwitchTopic(ctx, name, id); err != nil {
			return fmt.Errorf("opening topic: %w", err)
		}
	}

	c := console.New(ctrl, term,
		console.WithHistoryFile(filepath.Join(cfg.DataDir, "history")),
		console.WithLogger(logger),
	)
	return c.Run(ctx)
}
