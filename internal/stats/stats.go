// Package stats summarises the final corpus: documents per domain and extension,
// corpus size, and the in/out link counts of every collected page.
package stats

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/labadain/labadain-crawler/internal/fetch"
	"github.com/labadain/labadain-crawler/internal/weburl"
)

// Collection describes the documents of a corpus.
type Collection struct {
	Documents  int
	URLs       []string
	Domains    map[string]int
	Extensions map[string]int
}

// Count is a key with its number of documents.
type Count struct {
	Key   string
	Total int
}

// Summarize reads the url of every corpus record. Records whose second line is not
// an http(s) url, such as paragraphs split off by blank content lines, are ignored.
func Summarize(pages []string) Collection {
	c := Collection{
		Domains:    make(map[string]int),
		Extensions: make(map[string]int),
	}
	for _, page := range pages {
		lines := strings.SplitN(page, "\n", 3)
		if len(lines) < 2 {
			continue
		}
		u := strings.TrimSpace(lines[1])
		if !fetch.IsURL(u) {
			continue
		}
		c.Documents++
		c.URLs = append(c.URLs, u)
		c.Domains[weburl.Domain(u)]++
		c.Extensions[weburl.Extension(u)]++
	}
	slog.Debug("Collection summarized", "pages", len(pages), "documents", c.Documents, "domains", len(c.Domains))
	return c
}

// SortedCounts returns counts ordered by total, largest first, ties by key.
func SortedCounts(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Total: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Key < out[j].Key
	})
	return out
}
