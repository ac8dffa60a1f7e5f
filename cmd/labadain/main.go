package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/labadain/labadain-crawler/internal/app"
	"github.com/labadain/labadain-crawler/internal/config"
	"github.com/labadain/labadain-crawler/internal/sampling"
	"github.com/spf13/cobra"
)

// setupLogger configures the default slog logger: info by default, debug with
// --debug and errors only with --quiet
func setupLogger(debug, quiet bool) {
	level := slog.LevelInfo
	switch {
	case debug:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// newApp loads the configuration named by --config and prepares the pipeline files
func newApp(cmd *cobra.Command) (*app.App, error) {
	path, _ := cmd.Flags().GetString("config")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureFiles(); err != nil {
		return nil, err
	}
	return app.New(cfg, app.WithQuiet(quiet)), nil
}

// intFlag returns the flag value when it was set, nil otherwise
func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

// run executes fn with a context cancelled on interrupt or termination
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, a)
}

var rootCmd = &cobra.Command{
	Use:   "labadain",
	Short: "Tetun web corpus pipeline",
	Long: `Labadain builds a Tetun text corpus from crawled web pages.

The pipeline draws seed words from the existing corpus, searches the web for new
seed urls for the crawler, extracts the Tetun documents of the crawl index into the
final corpus and reports statistics about the collection.

Examples:
  labadain seed --runs 5
  labadain corpus --rows 50
  labadain stats --links
  labadain pipeline --skip-seeder
  labadain preview https://www.tatoli.tl/`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		quiet, _ := cmd.Flags().GetBool("quiet")
		setupLogger(debug, quiet)
	},
}

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Extract Tetun documents from the crawl index into the final corpus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// only flags given on the command line override the config
		opts := app.CorpusOptions{
			Start:       intFlag(cmd, "start"),
			Rows:        intFlag(cmd, "rows"),
			MaxNewlines: intFlag(cmd, "max-newlines"),
		}

		return run(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.BuildCorpus(ctx, opts)
			if err != nil {
				return fmt.Errorf("corpus failed: %w", err)
			}
			fmt.Printf("Corpus run %s: %d accepted, %d skipped, %d failed, %d lines written\n",
				report.RunID, report.Accepted, report.TotalSkipped(), report.Failed, report.LinesWritten)
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Draw seed words and search for new seed urls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SeedOptions{}
		opts.Runs, _ = cmd.Flags().GetInt("runs")
		opts.WordsOnly, _ = cmd.Flags().GetBool("words-only")

		return run(cmd, func(ctx context.Context, a *app.App) error {
			results, err := a.GenerateSeeds(ctx, opts)
			for i, r := range results {
				fmt.Printf("Run %d: seed words %q, %d new urls, %d new domains\n",
					i+1, r.Words, len(r.Collected.URLs), len(r.Collected.Domains))
			}
			if err != nil {
				return fmt.Errorf("seeder failed: %w", err)
			}
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Write statistics of the final corpus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.StatsOptions{}
		opts.Links, _ = cmd.Flags().GetBool("links")

		return run(cmd, func(ctx context.Context, a *app.App) error {
			summary, err := a.CollectStats(ctx, opts)
			if err != nil {
				return fmt.Errorf("statistics failed: %w", err)
			}
			for _, line := range summary.Lines() {
				fmt.Println(line)
			}
			return nil
		})
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write random samples of the final corpus for manual evaluation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app.App) error {
			paths, err := a.GenerateEvalSamples(ctx)
			if errors.Is(err, sampling.ErrInsufficientSample) {
				return fmt.Errorf("the corpus is too small for %d text pages per sample: %w",
					a.Config().Params.TotalTextPages, err)
			}
			if err != nil {
				return fmt.Errorf("sampling failed: %w", err)
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		})
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <url|file>",
	Short: "Show the corpus record a page would produce, without writing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.PreviewOptions{}
		opts.Selector, _ = cmd.Flags().GetString("selector")
		opts.IncludeAll, _ = cmd.Flags().GetBool("include-all")

		return run(cmd, func(ctx context.Context, a *app.App) error {
			preview, err := a.Preview(ctx, args[0], opts)
			if err != nil {
				return fmt.Errorf("preview failed: %w", err)
			}
			if preview.GateErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: every line is rejected: %v\n", preview.GateErr)
			}
			fmt.Print(preview.Record())
			fmt.Fprintf(os.Stderr, "title accepted: %v, lines: %d extracted, %d accepted, %d blank suppressed\n",
				preview.TitleAccepted, preview.Extracted, preview.Accepted, preview.Suppressed)
			return nil
		})
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the latest pipeline runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return run(cmd, func(ctx context.Context, a *app.App) error {
			runs, err := a.ListRuns(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to read run history: %w", err)
			}
			return app.WriteRuns(os.Stdout, runs)
		})
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the seeder, corpus and statistics steps in order",
	Long: `Run the seeder, corpus and statistics steps in order.

Crawling is left to the crawler: run it on the generated seed urls between the
seeder and the corpus steps, or skip the seeder when the index is already filled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.PipelineOptions{}
		opts.SeederRuns, _ = cmd.Flags().GetInt("seeder-runs")
		opts.SkipSeeder, _ = cmd.Flags().GetBool("skip-seeder")
		opts.SkipCorpus, _ = cmd.Flags().GetBool("skip-corpus")
		opts.SkipStats, _ = cmd.Flags().GetBool("skip-stats")
		opts.Links, _ = cmd.Flags().GetBool("links")

		return run(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Pipeline(ctx, opts); err != nil {
				return fmt.Errorf("pipeline failed: %w", err)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML configuration file (defaults built in)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only log errors and hide progress")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	rootCmd.MarkFlagsMutuallyExclusive("quiet", "debug")

	corpusCmd.Flags().Int("start", 0, "Index offset to start from (overrides config)")
	corpusCmd.Flags().Int("rows", 0, "Documents per index page (overrides config)")
	corpusCmd.Flags().Int("max-newlines", 0, "Blank-line cap per document (overrides config)")

	seedCmd.Flags().Int("runs", 1, "Number of seeder iterations")
	seedCmd.Flags().Bool("words-only", false, "Draw seed words without searching for seed urls")

	statsCmd.Flags().Bool("links", false, "Fetch every page and count its in and out links")

	previewCmd.Flags().StringP("selector", "s", "", "CSS selector restricting extraction")
	previewCmd.Flags().BoolP("include-all", "i", false, "Include all content without readability filtering")
	previewCmd.MarkFlagsMutuallyExclusive("selector", "include-all")

	runsCmd.Flags().Int("limit", 20, "Number of runs to list, 0 for all")

	pipelineCmd.Flags().Int("seeder-runs", 5, "Number of seeder iterations")
	pipelineCmd.Flags().Bool("skip-seeder", false, "Skip seed word and url generation")
	pipelineCmd.Flags().Bool("skip-corpus", false, "Skip corpus construction")
	pipelineCmd.Flags().Bool("skip-stats", false, "Skip collection statistics")
	pipelineCmd.Flags().Bool("links", false, "Include link statistics")

	rootCmd.AddCommand(corpusCmd, seedCmd, statsCmd, sampleCmd, previewCmd, runsCmd, pipelineCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
