package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Show or change the saved system prompt",
	Long:  `The system prompt is kept in local storage and sent with every message from chat and ui.`,
}

var promptGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the system prompt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openPrefs(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		prompt, err := store.SystemPrompt(context.Background())
		if err != nil {
			return err
		}
		if prompt == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "No system prompt set.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return nil
	},
}

var promptSetCmd = &cobra.Command{
	Use:   "set <prompt>",
	Short: "Save the system prompt; an empty prompt clears it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openPrefs(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		prompt := strings.TrimSpace(strings.Join(args, " "))
		if err := store.SetSystemPrompt(context.Background(), prompt); err != nil {
			return err
		}
		if prompt == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "System prompt cleared.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "System prompt saved.")
		}
		return nil
	},
}

func init() {
	promptCmd.AddCommand(promptGetCmd, promptSetCmd)
	rootCmd.AddCommand(promptCmd)
}
