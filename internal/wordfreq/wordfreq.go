// Package wordfreq turns a token stream into a word probability distribution.
//
// The distribution is the relative frequency of every distinct token:
//
//	P(word) = count(word) / total tokens
//
// so it sums to one over the observed vocabulary.
//
// Usage Example:
//
//	dist := wordfreq.NewDistribution(tokens)
//	top := dist.Top(10)
package wordfreq

import (
	"log/slog"
	"sort"
)

// Distribution maps each word to its probability.
type Distribution map[string]float64

// WordProb is one entry of a Distribution.
type WordProb struct {
	Word string
	Prob float64
}

// Count returns the number of occurrences of every distinct token.
func Count(tokens []string) map[string]int {
	counts := make(map[string]int)
	for _, token := range tokens {
		counts[token]++
	}
	return counts
}

// NewDistribution computes the relative frequency of each token.
// An empty token stream gives an empty distribution.
func NewDistribution(tokens []string) Distribution {
	if len(tokens) == 0 {
		slog.Debug("Empty token stream provided")
		return Distribution{}
	}

	counts := Count(tokens)
	total := float64(len(tokens))
	dist := make(Distribution, len(counts))
	for word, count := range counts {
		dist[word] = float64(count) / total
	}

	slog.Debug("Word distribution computed", "tokens", len(tokens), "vocabulary", len(dist))
	return dist
}

// Top returns the n most probable words, ties broken alphabetically.
// A non-positive n returns every word.
func (d Distribution) Top(n int) []WordProb {
	entries := make([]WordProb, 0, len(d))
	for word, p := range d {
		entries = append(entries, WordProb{Word: word, Prob: p})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Prob != entries[j].Prob {
			return entries[i].Prob > entries[j].Prob
		}
		return entries[i].Word < entries[j].Word
	})
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
