package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wisdomizer/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize wisdomizer configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the chat server, notifications and diagram rendering, and writes a .wisdomizer.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
