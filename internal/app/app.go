// Package app contains the pipeline steps behind the labadain CLI.
// It wires configuration, storage, progress and run history around the domain
// packages, separated from CLI concerns.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"

	"github.com/labadain/labadain-crawler/internal/builder"
	"github.com/labadain/labadain-crawler/internal/classify"
	"github.com/labadain/labadain-crawler/internal/config"
	"github.com/labadain/labadain-crawler/internal/fetch"
	"github.com/labadain/labadain-crawler/internal/runlog"
	"github.com/labadain/labadain-crawler/internal/sampling"
	"github.com/labadain/labadain-crawler/internal/seed"
	"github.com/labadain/labadain-crawler/internal/spinner"
)

// Gate keeps the texts that belong to the target language.
type Gate interface {
	Filter(texts []string) ([]string, error)
}

// App runs the pipeline steps for one configuration.
type App struct {
	cfg      config.Config
	stderr   io.Writer
	quiet    bool
	client   *http.Client
	rng      *rand.Rand
	gate     Gate
	searcher seed.Searcher
	source   builder.Source
}

// Option customises an App.
type Option func(*App)

// WithStderr sets where progress is drawn (default os.Stderr).
func WithStderr(w io.Writer) Option {
	return func(a *App) { a.stderr = w }
}

// WithQuiet disables progress output.
func WithQuiet(quiet bool) Option {
	return func(a *App) { a.quiet = quiet }
}

// WithHTTPClient sets the client used for the index, page fetches and search.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) { a.client = c }
}

// WithRand sets the random source of the sampling steps.
func WithRand(rng *rand.Rand) Option {
	return func(a *App) { a.rng = rng }
}

// WithGate replaces the language gate loaded from the model file.
func WithGate(g Gate) Option {
	return func(a *App) { a.gate = g }
}

// WithSearcher replaces the web search used for seed urls.
func WithSearcher(s seed.Searcher) Option {
	return func(a *App) { a.searcher = s }
}

// WithSource replaces the search index client as the corpus document source.
func WithSource(s builder.Source) Option {
	return func(a *App) { a.source = s }
}

// New creates an App. cfg is expected to be validated.
func New(cfg config.Config, opts ...Option) *App {
	a := &App{cfg: cfg, stderr: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = fetch.NewHTTPClient(cfg.Params.HTTPTimeout)
	}
	if a.rng == nil {
		a.rng = sampling.NewRand(cfg.Params.RandomSeed)
	}
	return a
}

// Config returns the configuration the App runs with.
func (a *App) Config() config.Config {
	return a.cfg
}

// languageGate returns the injected gate or loads the model artifact. The gate is
// always usable: without a model it rejects every text, and unavailable carries the
// load error so runs can report it.
func (a *App) languageGate() (gate Gate, unavailable error) {
	if a.gate == nil {
		a.gate = classify.LoadGate(a.cfg.FilePath(config.LIDModel), a.cfg.Params.Language, a.cfg.Params.LangProbaThreshold)
	}
	if g, ok := a.gate.(*classify.Gate); ok {
		return g, g.Err()
	}
	return a.gate, nil
}

// progress is a spinner that only draws on an interactive stderr.
type progress struct {
	sp *spinner.Spinner
}

func (a *App) startProgress(ctx context.Context, status string) *progress {
	if a.quiet || !spinner.Enabled(a.stderr) {
		return &progress{}
	}
	sp := spinner.New(ctx, a.stderr, status)
	sp.Start()
	return &progress{sp: sp}
}

func (p *progress) update(format string, args ...any) {
	if p.sp != nil {
		p.sp.Updatef(format, args...)
	}
}

func (p *progress) stop() {
	if p.sp != nil {
		p.sp.Stop()
	}
}

// record stores run in the history database. History is informational: failures
// are logged and never fail the step.
func (a *App) record(ctx context.Context, run runlog.Run) {
	// an interrupted run is still worth recording
	ctx = context.WithoutCancel(ctx)

	store, err := runlog.Open(ctx, a.cfg.FilePath(config.RunHistory))
	if err != nil {
		slog.Warn("Run history unavailable", "error", err)
		return
	}
	defer store.Close()

	if err := store.Record(ctx, run); err != nil {
		slog.Warn("Failed to record run", "id", run.ID, "kind", run.Kind, "error", err)
	}
}

// outcome maps a step error to the recorded outcome.
func outcome(err error) string {
	if err != nil {
		return string(builder.OutcomeFailure)
	}
	return string(builder.OutcomeSuccess)
}

func errDetail(detail string, err error) string {
	if err == nil {
		return detail
	}
	if detail == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s; %v", detail, err)
}
