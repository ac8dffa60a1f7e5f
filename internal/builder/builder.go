// Package builder assembles the monolingual corpus from documents held in the index.
//
// Processing Pipeline (per document, in index order):
// 1. skip documents without a title
// 2. gate the title and skip it when rejected or already accepted in this run
// 3. skip feed/tag pages, foreign Wikipedia editions and facebook pages
// 4. skip documents without content
// 5. gate the content lines, normalise them and append the record to the corpus
//
// Skips are expected control flow: they are logged and counted, never returned.
// A failing index query aborts the run.
package builder

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labadain/labadain-crawler/internal/extract"
	"github.com/labadain/labadain-crawler/internal/index"
)

// Source yields raw documents starting at an index offset.
type Source interface {
	Documents(ctx context.Context, start, rows int) iter.Seq2[index.RawDocument, error]
}

// Gate keeps the texts that belong to the target language.
type Gate interface {
	Filter(texts []string) ([]string, error)
}

// Writer is the append-only corpus sink.
type Writer interface {
	Append(line string) error
	AppendBlank() error
	Flush() error
}

// SkipReason names why a document was left out of the corpus.
type SkipReason string

const (
	SkipNoTitle          SkipReason = "no_title"
	SkipTitleLanguage    SkipReason = "title_language"
	SkipDuplicateTitle   SkipReason = "duplicate_title"
	SkipFeedOrTag        SkipReason = "feed_or_tag"
	SkipForeignWikipedia SkipReason = "foreign_wikipedia"
	SkipFacebook         SkipReason = "facebook"
	SkipNoContent        SkipReason = "no_content"
)

// Outcome is the overall result of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Report accumulates the counters of one run.
type Report struct {
	RunID           string
	Started         time.Time
	Finished        time.Time
	Accepted        int
	Skipped         map[SkipReason]int
	Failed          int // documents dropped by a processing error
	LinesWritten    int
	BlankSuppressed int
	Err             error // set when the run was aborted
}

// Outcome reports failure when the run was aborted.
func (r Report) Outcome() Outcome {
	if r.Err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// TotalSkipped sums the skip counters.
func (r Report) TotalSkipped() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

// Options configures a Builder.
type Options struct {
	Language               string // target class, also required in Wikipedia urls
	MaxConsecutiveNewlines int
	Start                  int
	Rows                   int
	Progress               func(Report) // called after every document, may be nil
}

// Builder runs corpus generation. A Builder owns its writer for the length of
// one Generate call and must not be shared between concurrent runs.
type Builder struct {
	source Source
	gate   Gate
	out    Writer
	opts   Options
}

// New creates a Builder.
func New(source Source, gate Gate, out Writer, opts Options) *Builder {
	return &Builder{source: source, gate: gate, out: out, opts: opts}
}

// Generate pages through the source and appends every accepted document to the
// corpus. It returns the run report together with the error that aborted the run,
// if any; index failures wrap index.ErrIndexQuery.
func (b *Builder) Generate(ctx context.Context) (Report, error) {
	report := Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Skipped: make(map[SkipReason]int),
	}
	// titles are deduplicated by their classifier-validated form
	seenTitles := make(map[string]struct{})

	slog.Info("Generating corpus from index", "run", report.RunID, "start", b.opts.Start, "rows", b.opts.Rows)

	for doc, err := range b.source.Documents(ctx, b.opts.Start, b.opts.Rows) {
		if err != nil {
			return b.finish(report, fmt.Errorf("corpus run aborted: %w", err))
		}

		reason, err := b.process(doc, seenTitles, &report)
		switch {
		case err != nil:
			var werr *writeError
			if errors.As(err, &werr) {
				return b.finish(report, err)
			}
			report.Failed++
			slog.Warn("Failed to process document", "url", doc.URL, "error", err)
		case reason != "":
			report.Skipped[reason]++
		default:
			report.Accepted++
		}

		if b.opts.Progress != nil {
			b.opts.Progress(report)
		}
	}

	return b.finish(report, nil)
}

func (b *Builder) finish(report Report, err error) (Report, error) {
	report.Finished = time.Now()
	report.Err = err
	if flushErr := b.out.Flush(); flushErr != nil && err == nil {
		err = fmt.Errorf("failed to flush corpus: %w", flushErr)
		report.Err = err
	}
	slog.Info("Corpus run finished",
		"run", report.RunID,
		"outcome", report.Outcome(),
		"accepted", report.Accepted,
		"skipped", report.TotalSkipped(),
		"failed", report.Failed,
		"lines", report.LinesWritten,
		"duration", report.Finished.Sub(report.Started).Round(time.Millisecond))
	return report, err
}

// writeError marks corpus write failures, which abort the run
type writeError struct{ err error }

func (e *writeError) Error() string { return "failed to write corpus: " + e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

// process handles one document. It returns a non-empty reason when the document is
// skipped and an error when processing failed.
func (b *Builder) process(doc index.RawDocument, seenTitles map[string]struct{}, report *Report) (SkipReason, error) {
	if doc.Title == nil || strings.TrimSpace(*doc.Title) == "" {
		slog.Warn("Document has no title", "url", doc.URL)
		return SkipNoTitle, nil
	}
	title := *doc.Title

	validTitle, err := b.gate.Filter([]string{title})
	if err != nil {
		return "", fmt.Errorf("failed to classify title: %w", err)
	}
	if len(validTitle) == 0 {
		slog.Warn("Title is not in the target language", "title", title, "language", b.opts.Language)
		return SkipTitleLanguage, nil
	}
	// titles are compared as classified, before the header is trimmed
	if _, dup := seenTitles[validTitle[0]]; dup {
		slog.Warn("Duplicate title", "title", title)
		return SkipDuplicateTitle, nil
	}
	seenTitles[validTitle[0]] = struct{}{}

	if reason := b.excludedURL(doc.URL); reason != "" {
		slog.Warn("Excluded url", "url", doc.URL, "reason", reason)
		return reason, nil
	}

	if doc.Content == nil {
		slog.Warn("Document has no content", "title", title)
		return SkipNoContent, nil
	}

	accepted, err := b.gate.Filter(strings.Split(*doc.Content, "\n"))
	if err != nil {
		return "", fmt.Errorf("failed to classify content of %q: %w", doc.URL, err)
	}
	lines, suppressed, err := Normalize(accepted, b.opts.MaxConsecutiveNewlines)
	if err != nil {
		return "", fmt.Errorf("failed to clean content of %q: %w", doc.URL, err)
	}

	if err := b.writeRecord(singleLine(title), singleLine(doc.URL), lines); err != nil {
		return "", &writeError{err: err}
	}
	report.LinesWritten += len(lines)
	report.BlankSuppressed += suppressed

	slog.Debug("Document added to corpus", "title", title, "url", doc.URL, "lines", len(lines))
	return "", nil
}

// excludedURL returns the skip reason for urls that never enter the corpus
func (b *Builder) excludedURL(u string) SkipReason {
	switch {
	case strings.Contains(u, "/feed") || strings.Contains(u, "/tag"):
		return SkipFeedOrTag
	case strings.Contains(u, "wikipedia") && !strings.Contains(u, b.opts.Language):
		return SkipForeignWikipedia
	case strings.Contains(u, "facebook"):
		return SkipFacebook
	}
	return ""
}

func (b *Builder) writeRecord(title, url string, lines []string) error {
	if err := b.out.Append(title); err != nil {
		return err
	}
	if err := b.out.Append(url); err != nil {
		return err
	}
	for _, line := range lines {
		if err := b.out.Append(line); err != nil {
			return err
		}
	}
	if err := b.out.AppendBlank(); err != nil {
		return err
	}
	return b.out.Flush()
}

// Normalize cleans the gated lines of one document: each line is trimmed and
// stripped of markup, and runs of blank lines are capped so that no more than
// maxBlank-1 consecutive blank lines survive. Once the cap is reached every further
// blank line is suppressed until a non-blank line resets the count. Repeated
// sentences are kept.
//
// The returned lines exclude the record terminator; suppressed is the number of
// blank lines dropped.
func Normalize(accepted []string, maxBlank int) (lines []string, suppressed int, err error) {
	lines = make([]string, 0, len(accepted))
	seenSentences := make(map[string]struct{})
	consecutive := 0

	for _, raw := range accepted {
		text, err := extract.StripMarkup(strings.TrimSpace(raw))
		if err != nil {
			return nil, 0, err
		}
		text = strings.TrimSpace(text)

		if text == "" {
			consecutive++
			if consecutive >= maxBlank {
				suppressed++
				continue
			}
			lines = append(lines, "")
			continue
		}

		consecutive = 0
		lines = append(lines, text)
		// bookkeeping only, repeated sentences are still written
		seenSentences[text] = struct{}{}
	}
	return lines, suppressed, nil
}

// singleLine keeps header fields on one line of the record
func singleLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s))
}
