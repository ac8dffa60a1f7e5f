package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labadain/labadain-crawler/internal/config"
	"github.com/labadain/labadain-crawler/internal/corpus"
	"github.com/labadain/labadain-crawler/internal/evalsample"
	"github.com/labadain/labadain-crawler/internal/runlog"
)

// GenerateEvalSamples writes the configured number of random evaluation samples of
// the final corpus and returns their paths.
func (a *App) GenerateEvalSamples(ctx context.Context) ([]string, error) {
	started := time.Now()
	paths, err := evalsample.Generate(
		corpus.New(a.cfg.FilePath(config.FinalCorpus)),
		evalsample.Options{
			Dir:            a.cfg.Paths.EvalSample,
			Samples:        a.cfg.Params.TotalSamples,
			PagesPerSample: a.cfg.Params.TotalTextPages,
		},
		a.rng)

	a.record(ctx, runlog.Run{
		ID:       uuid.NewString(),
		Kind:     runlog.KindSample,
		Started:  started,
		Finished: time.Now(),
		Outcome:  outcome(err),
		Accepted: len(paths),
		Detail:   errDetail(fmt.Sprintf("%d pages per sample in %s", a.cfg.Params.TotalTextPages, a.cfg.Paths.EvalSample), err),
	})
	return paths, err
}
