package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/labadain/labadain-crawler/internal/config"
	"github.com/labadain/labadain-crawler/internal/runlog"
)

// ListRuns returns the latest runs, newest first; limit <= 0 returns all of them.
func (a *App) ListRuns(ctx context.Context, limit int) ([]runlog.Run, error) {
	store, err := runlog.Open(ctx, a.cfg.FilePath(config.RunHistory))
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List(ctx, limit)
}

// WriteRuns prints runs as an aligned table.
func WriteRuns(w io.Writer, runs []runlog.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTARTED\tDURATION\tOUTCOME\tACCEPTED\tSKIPPED\tFAILED\tDETAIL")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			shortID(r.ID), r.Kind, r.Started.Local().Format(time.DateTime),
			r.Duration().Round(time.Millisecond), r.Outcome,
			r.Accepted, r.Skipped, r.Failed, r.Detail)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
