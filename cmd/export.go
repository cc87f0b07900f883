package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wisdomizer/internal/export"
	"github.com/ziadkadry99/wisdomizer/internal/site"
)

var exportCmd = &cobra.Command{
	Use:   "export <uuid>",
	Short: "Export a topic's chat history",
	Long: `Writes a topic's messages as a Markdown transcript with YAML front matter,
or as a standalone HTML page with rendered diagrams. Without --output the
transcript goes to stdout; an output directory gets a file named after the
topic.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("format", "f", "markdown", "markdown or html")
	exportCmd.Flags().StringP("output", "o", "", "output file or directory")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	formatName, _ := cmd.Flags().GetString("format")
	f, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	opts := []export.Option{}
	if f == export.FormatHTML {
		pr, err := site.NewPageRenderer("Wisdomizer", newFormatter(cfg, logger), newRenderer(cfg), logger)
		if err != nil {
			return err
		}
		opts = append(opts, export.WithPageRenderer(pr))
	}
	exporter := export.New(newClient(cfg, logger), opts...)

	var buf bytes.Buffer
	title, err := exporter.Export(context.Background(), args[0], f, &buf)
	if err != nil {
		return fmt.Errorf("exporting %s: %w", args[0], err)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		output = filepath.Join(output, export.FileName(title, f))
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %q to %s\n", title, output)
	return nil
}
