package stats

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/labadain/labadain-crawler/internal/weburl"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// LinkStats holds the link counts of one page.
type LinkStats struct {
	URL      string
	Outlinks int
	Inlinks  int
}

// String formats the stats as a line of the url links file.
func (l LinkStats) String() string {
	return fmt.Sprintf("Url: %s, Outlink: %d, Inlink: %d", l.URL, l.Outlinks, l.Inlinks)
}

// CountLinks counts the anchors of an HTML page. Absolute http(s) links that do not
// contain domain are outlinks; other absolute links and relative links are inlinks.
// Fragment-only and empty hrefs are ignored.
func CountLinks(page io.Reader, domain string) (outlinks, inlinks int, err error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse page: %w", err)
	}

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		switch {
		case href == "":
		case strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://"):
			if strings.Contains(href, domain) {
				inlinks++
			} else {
				outlinks++
			}
		case !strings.HasPrefix(href, "#"):
			inlinks++
		}
	})
	return outlinks, inlinks, nil
}

// Getter opens a page for reading.
type Getter interface {
	GetContent(ctx context.Context, source string) (io.ReadCloser, error)
}

// LinkCollector fetches pages concurrently and counts their links.
type LinkCollector struct {
	getter      Getter
	concurrency int
	limiter     *rate.Limiter
}

// NewLinkCollector creates a collector running at most concurrency fetches at a
// time and starting at most perSecond of them per second (0 means unlimited).
func NewLinkCollector(getter Getter, concurrency int, perSecond float64) *LinkCollector {
	c := &LinkCollector{getter: getter, concurrency: max(concurrency, 1)}
	if perSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return c
}

// Collect returns the link stats of every page that could be fetched and parsed,
// in the order of urls. Unreachable pages are logged and left out; only
// cancellation of ctx fails the call.
func (c *LinkCollector) Collect(ctx context.Context, urls []string) ([]LinkStats, error) {
	results := make([]*LinkStats, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			if c.limiter != nil {
				if err := c.limiter.Wait(gCtx); err != nil {
					return err
				}
			}
			stats, err := c.count(gCtx, u)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				slog.Debug("Link count skipped", "url", u, "error", err)
				return nil
			}
			results[i] = &stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("link statistics interrupted: %w", err)
	}

	out := make([]LinkStats, 0, len(urls))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	slog.Info("Link statistics collected", "pages", len(out), "requested", len(urls))
	return out, nil
}

func (c *LinkCollector) count(ctx context.Context, u string) (LinkStats, error) {
	body, err := c.getter.GetContent(ctx, u)
	if err != nil {
		return LinkStats{}, err
	}
	defer body.Close()

	out, in, err := CountLinks(body, weburl.Domain(u))
	if err != nil {
		return LinkStats{}, err
	}
	return LinkStats{URL: u, Outlinks: out, Inlinks: in}, nil
}
