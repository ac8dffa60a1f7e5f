package stats

import (
	"fmt"

	"github.com/labadain/labadain-crawler/internal/counter"
)

// Appender appends one line to a store.
type Appender interface {
	Append(line string) error
}

// Spread is the range and mean of a list of counts.
type Spread struct {
	Max     int
	Min     int
	Average float64
}

// NewSpread computes the spread of values; an empty list gives zeros.
func NewSpread(values []int) Spread {
	if len(values) == 0 {
		return Spread{}
	}
	s := Spread{Max: values[0], Min: values[0]}
	total := 0
	for _, v := range values {
		s.Max = max(s.Max, v)
		s.Min = min(s.Min, v)
		total += v
	}
	s.Average = float64(total) / float64(len(values))
	return s
}

// Summary is the content of the statistics file.
type Summary struct {
	Collection Collection
	Size       counter.Size
	Links      []LinkStats
}

// Outlinks returns the spread of the outlink counts.
func (s Summary) Outlinks() Spread {
	values := make([]int, len(s.Links))
	for i, l := range s.Links {
		values[i] = l.Outlinks
	}
	return NewSpread(values)
}

// Inlinks returns the spread of the inlink counts.
func (s Summary) Inlinks() Spread {
	values := make([]int, len(s.Links))
	for i, l := range s.Links {
		values[i] = l.Inlinks
	}
	return NewSpread(values)
}

const rule = "========================================"

// Lines renders the summary as the lines of the statistics file.
func (s Summary) Lines() []string {
	out, in := s.Outlinks(), s.Inlinks()
	lines := []string{
		"Statistics of the collection:",
		rule,
		fmt.Sprintf("Total web pages (urls) processed: %d", s.Collection.Documents),
		fmt.Sprintf("Corpus size: %s", s.Size),
		fmt.Sprintf("Pages with link statistics: %d", len(s.Links)),
		fmt.Sprintf("Max outlinks: %d, Min outlinks: %d, Average outlinks: %.2f", out.Max, out.Min, out.Average),
		fmt.Sprintf("Max inlinks: %d, Min inlinks: %d, Average inlinks: %.2f", in.Max, in.Min, in.Average),
		rule,
		"",
		"========= Domain: total documents in the corresponding domain =========",
	}
	for _, c := range SortedCounts(s.Collection.Domains) {
		lines = append(lines, fmt.Sprintf("Domain: %s, total_docs: %d", c.Key, c.Total))
	}
	lines = append(lines, "", "========= Extension: total documents with the corresponding extension =========")
	for _, c := range SortedCounts(s.Collection.Extensions) {
		lines = append(lines, fmt.Sprintf("Extension: %s, total_docs: %d", c.Key, c.Total))
	}
	return lines
}

// WriteSummary appends the summary to the statistics store.
func WriteSummary(w Appender, s Summary) error {
	for _, line := range s.Lines() {
		if err := w.Append(line); err != nil {
			return fmt.Errorf("failed to write statistics: %w", err)
		}
	}
	return nil
}

// WriteLinks appends one line per page to the url links store.
func WriteLinks(w Appender, links []LinkStats) error {
	for _, l := range links {
		if err := w.Append(l.String()); err != nil {
			return fmt.Errorf("failed to write link statistics: %w", err)
		}
	}
	return nil
}
