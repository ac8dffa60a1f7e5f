package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labadain/labadain-crawler/internal/config"
	"github.com/labadain/labadain-crawler/internal/corpus"
	"github.com/labadain/labadain-crawler/internal/runlog"
	"github.com/labadain/labadain-crawler/internal/sampling"
	"github.com/labadain/labadain-crawler/internal/seed"
	"github.com/labadain/labadain-crawler/internal/tokenize"
)

// ErrNoSearchCredentials is returned when seed urls are requested without a search
// API key and engine id.
var ErrNoSearchCredentials = errors.New("search api key and engine id are not configured")

// SeedOptions configures GenerateSeeds.
type SeedOptions struct {
	Runs      int  // seeder iterations, at least one
	WordsOnly bool // draw seed words without searching for urls
}

// SeedRun is the outcome of one seeder iteration.
type SeedRun struct {
	Words     []string
	Collected seed.Collected
}

// GenerateSeeds draws seed words from the main corpus and, unless WordsOnly is set,
// searches for them to extend the crawler seed urls and the domain list.
func (a *App) GenerateSeeds(ctx context.Context, opts SeedOptions) ([]SeedRun, error) {
	gate, unavailable := a.languageGate()
	tokenizer, err := tokenize.New(tokenize.Kind(a.cfg.Params.Tokenizer))
	if err != nil {
		return nil, err
	}

	var collector *seed.URLCollector
	if !opts.WordsOnly {
		collector, err = a.urlCollector(ctx)
		if err != nil {
			return nil, err
		}
	}

	sampler := seed.NewSampler(
		corpus.New(a.cfg.FilePath(config.MainCorpus)),
		corpus.New(a.cfg.FilePath(config.SeedWords)),
		gate, tokenizer, a.rng,
		seed.Options{
			SampleRatio: a.cfg.Params.CorpusSampleRatio,
			NumWords:    a.cfg.Params.NumSeedWordSample,
		})

	runs := max(opts.Runs, 1)
	results := make([]SeedRun, 0, runs)
	p := a.startProgress(ctx, "Generating seeds")
	defer p.stop()

	for i := 1; i <= runs; i++ {
		p.update("Generating seeds: run %d of %d", i, runs)
		started := time.Now()

		result, err := a.seedRun(ctx, sampler, collector)
		a.record(ctx, runlog.Run{
			ID:       uuid.NewString(),
			Kind:     runlog.KindSeed,
			Started:  started,
			Finished: time.Now(),
			Outcome:  outcome(err),
			Accepted: len(result.Words),
			Detail: errDetail(errDetail(fmt.Sprintf("words %q, %d urls, %d domains",
				strings.Join(result.Words, " "), len(result.Collected.URLs), len(result.Collected.Domains)), unavailable), err),
		})
		if err != nil {
			return results, fmt.Errorf("seeder run %d: %w", i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// seedRun draws one set of words and searches for them. A short draw is still
// searched; an empty one is an error.
func (a *App) seedRun(ctx context.Context, sampler *seed.Sampler, collector *seed.URLCollector) (SeedRun, error) {
	var result SeedRun

	words, err := sampler.Generate(ctx)
	result.Words = words
	if err != nil {
		if !errors.Is(err, sampling.ErrInsufficientSample) || len(words) == 0 {
			return result, err
		}
		slog.Warn("Seed words drawn from a small vocabulary", "words", words, "error", err)
	}

	if collector == nil {
		return result, nil
	}
	result.Collected, err = collector.Collect(ctx, strings.Join(words, " "))
	return result, err
}

func (a *App) urlCollector(ctx context.Context) (*seed.URLCollector, error) {
	searcher := a.searcher
	if searcher == nil {
		if !a.cfg.HasSearchCredentials() {
			return nil, ErrNoSearchCredentials
		}
		gs, err := seed.NewGoogleSearcher(ctx, a.cfg.Search.APIKey, a.cfg.Search.EngineID)
		if err != nil {
			return nil, err
		}
		searcher = gs
	}

	return seed.NewURLCollector(searcher,
		corpus.New(a.cfg.FilePath(config.SeedURLs)),
		corpus.New(a.cfg.FilePath(config.Domains)),
		seed.URLOptions{
			NumResults:         a.cfg.Params.GoogleSearchNumResult,
			MaxURLLength:       a.cfg.Params.MaxSeedURLLength,
			ExcludedExtensions: a.cfg.Params.ExtensionsToExclude,
			ExcludedDomains:    a.cfg.Params.DomainsToExclude,
		})
}
