package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wisdomizer/internal/api"
)

// requestTimeout bounds the one-shot topic commands.
const requestTimeout = 30 * time.Second

var topicsCmd = &cobra.Command{
	Use:     "topics",
	Aliases: []string{"topic"},
	Short:   "List and manage chat topics",
}

var topicsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List topics",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, cancel, err := topicClient()
		if err != nil {
			return err
		}
		defer cancel()

		topics, err := client.Topics(ctx)
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No topics yet.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "UUID\tTITLE")
		for _, t := range topics {
			fmt.Fprintf(tw, "%s\t%s\n", t.UUID, t.Title)
		}
		return tw.Flush()
	},
}

var topicsCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a topic",
	Long:  `Creates a topic. Without a title one is generated from the current time.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, cancel, err := topicClient()
		if err != nil {
			return err
		}
		defer cancel()

		title := "New Chat " + time.Now().Format("1-2-2006, 3-04-05 PM")
		if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
			title = strings.TrimSpace(args[0])
		}
		description, _ := cmd.Flags().GetString("description")
		topic, err := client.CreateTopic(ctx, title, description)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s)\n", topic.Title, topic.UUID)
		return nil
	},
}

var topicsRenameCmd = &cobra.Command{
	Use:   "rename <uuid> <title>",
	Short: "Rename a topic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.TrimSpace(args[1])
		if title == "" {
			return fmt.Errorf("title is empty")
		}
		client, ctx, cancel, err := topicClient()
		if err != nil {
			return err
		}
		defer cancel()

		topic, err := client.RenameTopic(ctx, args[0], title)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], topic.Title)
		return nil
	},
}

var topicsDeleteCmd = &cobra.Command{
	Use:     "delete <uuid>",
	Aliases: []string{"rm"},
	Short:   "Delete a topic and its messages",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Delete topic %s", args[0]),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
		}

		client, ctx, cancel, err := topicClient()
		if err != nil {
			return err
		}
		defer cancel()

		if err := client.DeleteTopic(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func topicClient() (*api.Client, context.Context, context.CancelFunc, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	return newClient(cfg, newLogger(cfg, os.Stderr)), ctx, cancel, nil
}

func init() {
	topicsCreateCmd.Flags().String("description", "New chat topic", "topic description")
	topicsDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	topicsCmd.AddCommand(topicsListCmd, topicsCreateCmd, topicsRenameCmd, topicsDeleteCmd)
	rootCmd.AddCommand(topicsCmd)
}
