// Package index pages raw crawled documents out of a Solr-compatible search index.
//
// Every request is a match-all select query (q=*:*, wt=json). The document sequence
// advances the start offset by one document per outer iteration and re-reads the
// reported total each time, so an index that grows during a long run extends the
// run.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labadain/labadain-crawler/internal/fetch"
	"golang.org/x/time/rate"
)

// ErrIndexQuery wraps every failure to query the index; it aborts a corpus run.
var ErrIndexQuery = errors.New("index query failed")

// matchAll is the fixed query selecting every document
const matchAll = "*:*"

// maxResponseBytes bounds a single select response
const maxResponseBytes = 64 * 1024 * 1024

// RawDocument is a document as stored by the crawler. Title and Content are nil when
// the index has no value for them.
type RawDocument struct {
	URL     string
	Title   *string
	Content *string
}

// Page is one select response.
type Page struct {
	NumFound int
	Docs     []RawDocument
}

// Client queries a select endpoint such as http://localhost:8983/solr/nutch/select.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default timeout-bounded client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithRateLimit caps the number of requests per second; zero or less disables it.
func WithRateLimit(perSecond float64) Option {
	return func(cl *Client) {
		if perSecond > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewClient creates a Client for the select endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{endpoint: endpoint}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = fetch.NewHTTPClient(fetch.DefaultRequestTimeout)
	}
	return c
}

// Total returns the number of documents matching the match-all query.
func (c *Client) Total(ctx context.Context) (int, error) {
	resp, err := c.query(ctx, url.Values{"rows": {"0"}})
	if err != nil {
		return 0, err
	}
	return resp.Response.NumFound, nil
}

// Page fetches rows documents beginning at start.
func (c *Client) Page(ctx context.Context, start, rows int) (*Page, error) {
	resp, err := c.query(ctx, url.Values{
		"start": {strconv.Itoa(start)},
		"rows":  {strconv.Itoa(rows)},
	})
	if err != nil {
		return nil, err
	}

	page := &Page{
		NumFound: resp.Response.NumFound,
		Docs:     make([]RawDocument, 0, len(resp.Response.Docs)),
	}
	for _, d := range resp.Response.Docs {
		page.Docs = append(page.Docs, RawDocument{
			URL:     d.URL.String(),
			Title:   d.Title.value,
			Content: d.Content.value,
		})
	}
	return page, nil
}

// Documents yields every document from start onwards, one at a time. After each page
// the offset moves forward by exactly one document and the total is queried again;
// the sequence ends once the offset reaches the total. A failed query is yielded as
// an error wrapping ErrIndexQuery and ends the sequence.
func (c *Client) Documents(ctx context.Context, start, rows int) iter.Seq2[RawDocument, error] {
	return func(yield func(RawDocument, error) bool) {
		for offset := start; ; offset++ {
			if err := ctx.Err(); err != nil {
				yield(RawDocument{}, err)
				return
			}

			total, err := c.Total(ctx)
			if err != nil {
				yield(RawDocument{}, err)
				return
			}
			if offset >= total {
				slog.Debug("Index exhausted", "offset", offset, "total", total)
				return
			}

			page, err := c.Page(ctx, offset, rows)
			if err != nil {
				yield(RawDocument{}, err)
				return
			}
			slog.Debug("Fetched index page", "offset", offset, "rows", rows, "docs", len(page.Docs), "total", total)

			for _, doc := range page.Docs {
				if !yield(doc, nil) {
					return
				}
			}
		}
	}
}

// selectResponse is the subset of the Solr JSON response we read
type selectResponse struct {
	Response struct {
		NumFound int      `json:"numFound"`
		Docs     []rawDoc `json:"docs"`
	} `json:"response"`
}

type rawDoc struct {
	URL     field `json:"url"`
	Title   field `json:"title"`
	Content field `json:"content"`
}

func (c *Client) query(ctx context.Context, params url.Values) (*selectResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexQuery, err)
		}
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint %q: %v", ErrIndexQuery, c.endpoint, err)
	}
	q := u.Query()
	q.Set("q", matchAll)
	q.Set("wt", "json")
	for key, values := range params {
		q[key] = values
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexQuery, err)
	}
	req.Header.Set("User-Agent", fetch.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d %s", ErrIndexQuery, resp.StatusCode, resp.Status)
	}

	var out selectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrIndexQuery, err)
	}
	return &out, nil
}
