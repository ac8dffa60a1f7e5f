package app

import (
	"context"
	"errors"
	"log/slog"
)

// PipelineOptions selects the steps of a full pipeline run. Crawling itself is done
// by the external crawler between the seeder and the corpus steps.
type PipelineOptions struct {
	SeederRuns int
	SkipSeeder bool
	SkipCorpus bool
	SkipStats  bool
	Links      bool
	Corpus     CorpusOptions
}

// Pipeline runs the seeder, corpus and statistics steps in order. The first failing
// step stops the run, except that a seeder failure caused by missing search
// credentials only skips seed url discovery.
func (a *App) Pipeline(ctx context.Context, opts PipelineOptions) error {
	if !opts.SkipSeeder {
		slog.Info("Pipeline: generating seeds", "runs", opts.SeederRuns)
		_, err := a.GenerateSeeds(ctx, SeedOptions{Runs: opts.SeederRuns})
		if errors.Is(err, ErrNoSearchCredentials) {
			slog.Warn("Seed url search not configured, drawing seed words only")
			_, err = a.GenerateSeeds(ctx, SeedOptions{Runs: opts.SeederRuns, WordsOnly: true})
		}
		if err != nil {
			return err
		}
	}

	if !opts.SkipCorpus {
		slog.Info("Pipeline: building corpus")
		if _, err := a.BuildCorpus(ctx, opts.Corpus); err != nil {
			return err
		}
	}

	if !opts.SkipStats {
		slog.Info("Pipeline: collecting statistics", "links", opts.Links)
		if _, err := a.CollectStats(ctx, StatsOptions{Links: opts.Links}); err != nil {
			return err
		}
	}

	slog.Info("Pipeline finished")
	return nil
}
