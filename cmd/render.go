package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wisdomizer/internal/progress"
	"github.com/ziadkadry99/wisdomizer/internal/site"
)

var renderCmd = &cobra.Command{
	Use:   "render [patterns...]",
	Short: "Render Markdown files to standalone HTML pages",
	Long: `Renders the Markdown files matching the given globs (default from config)
under --root into a static site, with highlighted code and diagrams. Files
whose content and navigation are unchanged since the last run are skipped.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().String("root", ".", "directory to read Markdown from")
	renderCmd.Flags().StringP("output", "o", "", "output directory (overrides config)")
	renderCmd.Flags().String("title", "", "site title (defaults to the root directory name)")
	renderCmd.Flags().StringSlice("exclude", nil, "extra exclude globs")
	renderCmd.Flags().Bool("force", false, "re-render unchanged files")
	renderCmd.Flags().Bool("no-diagrams", false, "leave diagram sources unrendered")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	start := time.Now()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, _ := cmd.Flags().GetString("root")
	outputDir, _ := cmd.Flags().GetString("output")
	if outputDir == "" {
		outputDir = cfg.Render.OutputDir
	}
	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = cfg.Render.Title
	}
	if title == "" {
		if abs, err := filepath.Abs(root); err == nil {
			title = filepath.Base(abs)
		}
	}

	include := cfg.Render.Include
	if len(args) > 0 {
		include = args
	}
	extra, _ := cmd.Flags().GetStringSlice("exclude")
	exclude := append(append([]string(nil), cfg.Render.Exclude...), extra...)
	force, _ := cmd.Flags().GetBool("force")

	store, closeStore, err := openPrefs(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []site.Option{
		site.WithTitle(title),
		site.WithPatterns(include, exclude),
		site.WithForce(force),
		site.WithFormatter(newFormatter(cfg, logger)),
		site.WithCache(store),
		site.WithReporter(progress.NewReporter(os.Stderr, "Rendering")),
		site.WithLogger(logger),
	}
	if noDiagrams, _ := cmd.Flags().GetBool("no-diagrams"); !noDiagrams {
		if r := newRenderer(cfg); r != nil {
			opts = append(opts, site.WithRenderer(r))
		}
	}

	gen, err := site.NewGenerator(root, outputDir, opts...)
	if err != nil {
		return err
	}
	stats, err := gen.Generate(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rendered %d pages (%d unchanged) into %s in %s\n",
		stats.Rendered, stats.Skipped, outputDir, time.Since(start).Round(time.Millisecond))
	if stats.Diagrams+stats.DiagramErrors > 0 {
		fmt.Fprintf(out, "  Diagrams: %d rendered, %d failed\n", stats.Diagrams, stats.DiagramErrors)
	}
	fmt.Fprintf(out, "  Open %s\n", filepath.Join(outputDir, site.IndexFile))
	return nil
}
