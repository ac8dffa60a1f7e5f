// Package evalsample writes random corpus samples for manual quality evaluation.
package evalsample

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/labadain/labadain-crawler/internal/sampling"
)

// ParagraphLoader reads a corpus as records separated by blank lines.
type ParagraphLoader interface {
	LoadParagraphs() ([]string, error)
}

// Options configures Generate.
type Options struct {
	Dir            string // created when missing
	Samples        int    // number of sample files
	PagesPerSample int    // distinct text pages in each file
}

// Generate writes Samples files named sample_<i>.txt (1-based) to Dir, each holding
// PagesPerSample distinct random pages of the corpus separated by a blank line.
// It returns the written paths. When the corpus has fewer pages than PagesPerSample
// nothing is written and the error wraps sampling.ErrInsufficientSample.
func Generate(corpus ParagraphLoader, opts Options, rng *rand.Rand) ([]string, error) {
	pages, err := corpus.LoadParagraphs()
	if err != nil {
		slog.Warn("Corpus not available for sampling", "error", err)
	}
	if len(pages) < opts.PagesPerSample {
		return nil, fmt.Errorf("%w: %d text pages per sample, corpus has %d",
			sampling.ErrInsufficientSample, opts.PagesPerSample, len(pages))
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sample directory: %w", err)
	}

	paths := make([]string, 0, opts.Samples)
	for i := 1; i <= opts.Samples; i++ {
		picked, err := sampling.Uniform(pages, opts.PagesPerSample, rng)
		if err != nil {
			return paths, err
		}

		// pages end with a newline, so one more gives the blank separator
		content := strings.Join(picked, "\n")
		path := filepath.Join(opts.Dir, fmt.Sprintf("sample_%d.txt", i))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return paths, fmt.Errorf("failed to write sample: %w", err)
		}
		paths = append(paths, path)
	}

	slog.Info("Evaluation samples generated", "samples", len(paths), "pages_per_sample", opts.PagesPerSample, "dir", opts.Dir)
	return paths, nil
}
