package seed

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/labadain/labadain-crawler/internal/weburl"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Searcher returns result links for a query.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]string, error)
}

// the Custom Search API serves at most 10 results per call and 100 per query
const (
	searchPageSize   = 10
	searchMaxResults = 100
)

// GoogleSearcher searches through the Programmable Search Engine API.
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleSearcher creates a searcher for the engine cx. Extra client options are
// appended after the API key.
func NewGoogleSearcher(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{svc: svc, cx: cx}, nil
}

// Search returns up to n result links, paging through the API as needed.
func (g *GoogleSearcher) Search(ctx context.Context, query string, n int) ([]string, error) {
	n = min(n, searchMaxResults)
	links := make([]string, 0, n)

	for start := 1; len(links) < n; start += searchPageSize {
		num := min(searchPageSize, n-len(links))
		resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).
			Num(int64(num)).Start(int64(start)).
			Context(ctx).Do()
		if err != nil {
			return links, fmt.Errorf("search %q failed: %w", query, err)
		}
		for _, item := range resp.Items {
			links = append(links, item.Link)
		}
		if len(resp.Items) < num {
			break
		}
	}
	return links, nil
}

// URLStore is a one-value-per-line store.
type URLStore interface {
	Set() (map[string]struct{}, error)
	Append(line string) error
}

// URLOptions configures a URLCollector.
type URLOptions struct {
	NumResults         int
	MaxURLLength       int      // longer urls are collected but not saved
	ExcludedExtensions []string // regular expressions matched against the lowercased url
	ExcludedDomains    []string // substrings
}

// Collected holds the new seed urls and domains of one search.
type Collected struct {
	URLs    []string
	Domains []string
}

// URLCollector turns seed words into new seed urls and domains for the crawler.
type URLCollector struct {
	searcher   Searcher
	urls       URLStore
	domains    URLStore
	opts       URLOptions
	extensions []*regexp.Regexp
}

// NewURLCollector compiles the extension patterns and creates a collector.
func NewURLCollector(searcher Searcher, urls, domains URLStore, opts URLOptions) (*URLCollector, error) {
	extensions := make([]*regexp.Regexp, 0, len(opts.ExcludedExtensions))
	for _, pattern := range opts.ExcludedExtensions {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid extension pattern %q: %w", pattern, err)
		}
		extensions = append(extensions, re)
	}
	return &URLCollector{
		searcher:   searcher,
		urls:       urls,
		domains:    domains,
		opts:       opts,
		extensions: extensions,
	}, nil
}

// Allowed reports whether u passes the extension and domain exclusions.
func (c *URLCollector) Allowed(u string) bool {
	lower := strings.ToLower(u)
	for _, re := range c.extensions {
		if re.MatchString(lower) {
			return false
		}
	}
	for _, domain := range c.opts.ExcludedDomains {
		if strings.Contains(u, domain) {
			return false
		}
	}
	return true
}

// Collect searches for the seed words. Allowed urls not yet in the url store are
// returned, and saved when shorter than MaxURLLength; their domains not yet in the
// domain store are returned and saved.
func (c *URLCollector) Collect(ctx context.Context, seedWords string) (Collected, error) {
	var out Collected

	links, err := c.searcher.Search(ctx, seedWords, c.opts.NumResults)
	if err != nil {
		if len(links) == 0 {
			return out, err
		}
		slog.Warn("Search ended early", "query", seedWords, "results", len(links), "error", err)
	}

	known, err := c.urls.Set()
	if err != nil {
		return out, fmt.Errorf("failed to load seed urls: %w", err)
	}
	for _, link := range links {
		if !c.Allowed(link) {
			slog.Debug("Url excluded", "url", link)
			continue
		}
		if _, seen := known[link]; seen {
			continue
		}
		known[link] = struct{}{}
		out.URLs = append(out.URLs, link)

		if len(link) < c.opts.MaxURLLength {
			if err := c.urls.Append(link); err != nil {
				return out, fmt.Errorf("failed to save seed url: %w", err)
			}
		}
	}

	knownDomains, err := c.domains.Set()
	if err != nil {
		return out, fmt.Errorf("failed to load domains: %w", err)
	}
	for _, link := range out.URLs {
		domain := weburl.Domain(link)
		if domain == "" {
			continue
		}
		if _, seen := knownDomains[domain]; seen {
			continue
		}
		knownDomains[domain] = struct{}{}
		out.Domains = append(out.Domains, domain)
		if err := c.domains.Append(domain); err != nil {
			return out, fmt.Errorf("failed to save domain: %w", err)
		}
	}

	slog.Info("Seed urls collected", "query", seedWords, "results", len(links), "urls", len(out.URLs), "domains", len(out.Domains))
	return out, nil
}
