package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "wisdomizer",
	Short: "Chat with a Wisdomizer server from the terminal or a local browser UI",
	Long: `Wisdomizer is a client for a Wisdomizer chat server. It streams replies
into a terminal chat or a live browser page, renders Markdown with
highlighted code and diagrams, manages topics, and turns Markdown files
and chat transcripts into standalone HTML.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".wisdomizer.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
