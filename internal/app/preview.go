package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/labadain/labadain-crawler/internal/builder"
	"github.com/labadain/labadain-crawler/internal/extract"
	"github.com/labadain/labadain-crawler/internal/fetch"
)

// PreviewOptions configures Preview.
type PreviewOptions struct {
	Selector   string // CSS selector restricting extraction, empty for readability
	IncludeAll bool   // convert the whole page instead of the main content
}

// PagePreview is the corpus record a page would produce.
type PagePreview struct {
	Title         string
	TitleAccepted bool
	URL           string
	Lines         []string
	Extracted     int   // lines extracted from the page
	Accepted      int   // lines kept by the language gate
	Suppressed    int   // blank lines dropped by the cap
	GateErr       error // set when no language model was loaded and every line is rejected
}

// Record renders the preview in the corpus record format.
func (p PagePreview) Record() string {
	var b strings.Builder
	b.WriteString(p.Title + "\n")
	b.WriteString(p.URL + "\n")
	for _, line := range p.Lines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Preview fetches a page or local file and runs it through the same line gate and
// blank-line cap as the corpus builder. Nothing is written to the corpus.
func (a *App) Preview(ctx context.Context, source string, opts PreviewOptions) (PagePreview, error) {
	gate, unavailable := a.languageGate()

	body, err := a.fetchSource(ctx, source)
	if err != nil {
		return PagePreview{}, err
	}

	// parse source URL for readability context (if it's a URL)
	var baseURL *url.URL
	if fetch.IsURL(source) {
		baseURL, _ = url.Parse(source)
	}

	markdown, err := extract.ToMarkdown(bytes.NewReader(body), opts.Selector, opts.IncludeAll, baseURL)
	if err != nil {
		return PagePreview{}, fmt.Errorf("failed to extract content: %w", err)
	}
	if strings.TrimSpace(markdown) == "" {
		return PagePreview{}, fmt.Errorf("no content extracted from %q", source)
	}

	preview := PagePreview{Title: pageTitle(body), URL: source, GateErr: unavailable}
	if preview.Title != "" {
		valid, err := gate.Filter([]string{preview.Title})
		if err != nil {
			return PagePreview{}, fmt.Errorf("failed to classify title: %w", err)
		}
		preview.TitleAccepted = len(valid) == 1
	}

	lines := extract.PlainLines(markdown)
	accepted, err := gate.Filter(lines)
	if err != nil {
		return PagePreview{}, fmt.Errorf("failed to classify content: %w", err)
	}
	preview.Lines, preview.Suppressed, err = builder.Normalize(accepted, a.cfg.Params.MaxConsecutiveNewline)
	if err != nil {
		return PagePreview{}, err
	}
	preview.Extracted = len(lines)
	preview.Accepted = len(accepted)

	slog.Debug("Page previewed", "source", source, "extracted", preview.Extracted, "accepted", preview.Accepted)
	return preview, nil
}

func (a *App) fetchSource(ctx context.Context, source string) ([]byte, error) {
	reader, err := fetch.New(a.client).GetContent(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", source, err)
	}
	return body, nil
}

// pageTitle returns the document title on a single line, or "" when there is none
func pageTitle(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
