package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labadain/labadain-crawler/internal/config"
	"github.com/labadain/labadain-crawler/internal/corpus"
	"github.com/labadain/labadain-crawler/internal/counter"
	"github.com/labadain/labadain-crawler/internal/fetch"
	"github.com/labadain/labadain-crawler/internal/runlog"
	"github.com/labadain/labadain-crawler/internal/stats"
)

// StatsOptions configures CollectStats.
type StatsOptions struct {
	Links bool // fetch every page and count its links
}

// CollectStats summarises the final corpus and appends the summary to the
// statistics file; with Links set the per-page link counts go to the url links file.
func (a *App) CollectStats(ctx context.Context, opts StatsOptions) (stats.Summary, error) {
	started := time.Now()
	summary, err := a.collectStats(ctx, opts)

	a.record(ctx, runlog.Run{
		ID:       uuid.NewString(),
		Kind:     runlog.KindStats,
		Started:  started,
		Finished: time.Now(),
		Outcome:  outcome(err),
		Accepted: summary.Collection.Documents,
		Detail: errDetail(fmt.Sprintf("%s, %d domains, %d pages with links",
			summary.Size, len(summary.Collection.Domains), len(summary.Links)), err),
	})
	return summary, err
}

func (a *App) collectStats(ctx context.Context, opts StatsOptions) (stats.Summary, error) {
	var summary stats.Summary

	pages, err := corpus.New(a.cfg.FilePath(config.FinalCorpus)).LoadParagraphs()
	if err != nil {
		return summary, fmt.Errorf("failed to load final corpus: %w", err)
	}
	summary.Collection = stats.Summarize(pages)

	summary.Size, err = counter.Measure(strings.Join(pages, "\n\n"))
	if err != nil {
		return summary, fmt.Errorf("failed to measure corpus: %w", err)
	}

	if opts.Links {
		p := a.startProgress(ctx, fmt.Sprintf("Counting links of %d pages", len(summary.Collection.URLs)))
		collector := stats.NewLinkCollector(fetch.New(a.client), a.cfg.Params.StatsConcurrency, a.cfg.Params.StatsRateLimit)
		summary.Links, err = collector.Collect(ctx, summary.Collection.URLs)
		p.stop()
		if err != nil {
			return summary, err
		}
		if err := stats.WriteLinks(corpus.New(a.cfg.FilePath(config.URLInOutLinks)), summary.Links); err != nil {
			return summary, err
		}
	}

	if err := stats.WriteSummary(corpus.New(a.cfg.FilePath(config.StatsInOutLinks)), summary); err != nil {
		return summary, err
	}
	slog.Info("Collection statistics written",
		"documents", summary.Collection.Documents,
		"domains", len(summary.Collection.Domains),
		"size", summary.Size.String(),
		"file", a.cfg.FilePath(config.StatsInOutLinks))
	return summary, nil
}
