package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labadain/labadain-crawler/internal/builder"
	"github.com/labadain/labadain-crawler/internal/config"
	"github.com/labadain/labadain-crawler/internal/corpus"
	"github.com/labadain/labadain-crawler/internal/index"
	"github.com/labadain/labadain-crawler/internal/runlog"
)

// CorpusOptions override the configured paging and blank-line cap; nil fields keep
// the configuration.
type CorpusOptions struct {
	Start       *int
	Rows        *int
	MaxNewlines *int
}

// BuildCorpus appends every accepted index document to the final corpus.
//
// The report is returned even when the run aborts; its Err matches the returned error.
// Without a language model every document is skipped as not in the target language,
// the run still succeeds and its history record names the missing model.
func (a *App) BuildCorpus(ctx context.Context, opts CorpusOptions) (builder.Report, error) {
	gate, unavailable := a.languageGate()

	source := a.source
	if source == nil {
		source = index.NewClient(a.cfg.Params.SolrURL,
			index.WithHTTPClient(a.client),
			index.WithRateLimit(a.cfg.Params.IndexRateLimit))
	}

	bopts := builder.Options{
		Language:               a.cfg.Params.Language,
		MaxConsecutiveNewlines: a.cfg.Params.MaxConsecutiveNewline,
		Start:                  a.cfg.Params.SolrStart,
		Rows:                   a.cfg.Params.SolrRows,
	}
	if opts.Start != nil {
		bopts.Start = *opts.Start
	}
	if opts.Rows != nil {
		bopts.Rows = *opts.Rows
	}
	if opts.MaxNewlines != nil {
		bopts.MaxConsecutiveNewlines = *opts.MaxNewlines
	}

	if bopts.Start < 0 || bopts.Rows < 1 || bopts.MaxConsecutiveNewlines < 1 {
		return builder.Report{}, fmt.Errorf("invalid corpus options: start %d, rows %d, max newlines %d",
			bopts.Start, bopts.Rows, bopts.MaxConsecutiveNewlines)
	}

	store := corpus.New(a.cfg.FilePath(config.FinalCorpus))
	w, err := store.OpenWriter()
	if err != nil {
		return builder.Report{}, err
	}
	defer w.Close()

	p := a.startProgress(ctx, "Building corpus")
	bopts.Progress = func(r builder.Report) {
		p.update("Building corpus: %d accepted, %d skipped, %d failed", r.Accepted, r.TotalSkipped(), r.Failed)
	}

	slog.Info("Building corpus", "index", a.cfg.Params.SolrURL, "corpus", store.Path(), "start", bopts.Start, "rows", bopts.Rows)
	report, err := builder.New(source, gate, w, bopts).Generate(ctx)
	p.stop()

	a.record(ctx, runlog.Run{
		ID:       report.RunID,
		Kind:     runlog.KindCorpus,
		Started:  report.Started,
		Finished: report.Finished,
		Outcome:  string(report.Outcome()),
		Accepted: report.Accepted,
		Skipped:  report.TotalSkipped(),
		Failed:   report.Failed,
		Detail: errDetail(errDetail(fmt.Sprintf("%d lines written, %d blank lines suppressed",
			report.LinesWritten, report.BlankSuppressed), unavailable), err),
	})
	return report, err
}
