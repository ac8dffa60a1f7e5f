// Package seed produces the inputs of the next crawl: seed words drawn from the
// existing corpus and the seed urls and domains found by searching for them.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/labadain/labadain-crawler/internal/corpus"
	"github.com/labadain/labadain-crawler/internal/sampling"
	"github.com/labadain/labadain-crawler/internal/tokenize"
	"github.com/labadain/labadain-crawler/internal/wordfreq"
)

// LineLoader reads a corpus as discrete lines.
type LineLoader interface {
	LoadLines() ([]string, error)
}

// Appender appends one line to a store.
type Appender interface {
	Append(line string) error
}

// Gate keeps the texts that belong to the target language.
type Gate interface {
	Filter(texts []string) ([]string, error)
}

// Options configures a Sampler.
type Options struct {
	SampleRatio float64 // share of corpus lines to tokenize
	NumWords    int     // distinct seed words per draw
}

// Sampler draws seed words biased towards frequent target-language words.
type Sampler struct {
	corpus    LineLoader
	seeds     Appender
	gate      Gate
	tokenizer tokenize.Tokenizer
	rng       *rand.Rand
	opts      Options
}

// NewSampler creates a Sampler reading corpus and appending to seeds.
func NewSampler(corpus LineLoader, seeds Appender, gate Gate, tokenizer tokenize.Tokenizer, rng *rand.Rand, opts Options) *Sampler {
	return &Sampler{
		corpus:    corpus,
		seeds:     seeds,
		gate:      gate,
		tokenizer: tokenizer,
		rng:       rng,
		opts:      opts,
	}
}

// Generate draws NumWords distinct words and appends them, space separated, as one
// line to the seed-words store.
//
// When the sampled corpus holds fewer distinct words than requested, every word is
// used and the returned error wraps sampling.ErrInsufficientSample; the words are
// still returned and written.
func (s *Sampler) Generate(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines, err := s.corpus.LoadLines()
	if err != nil && !errors.Is(err, corpus.ErrNotFound) && !errors.Is(err, corpus.ErrDecode) {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	size := int(math.Round(s.opts.SampleRatio * float64(len(lines))))
	sample, _ := sampling.Uniform(lines, size, s.rng)
	slog.Info("Corpus sample drawn", "lines", len(sample), "of", len(lines))

	tokens := s.tokenizer.Tokenize(strings.ToLower(strings.Join(sample, "\n")))
	words, err := s.gate.Filter(tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to classify sample tokens: %w", err)
	}
	slog.Debug("Sample tokenized", "tokens", len(tokens), "target_language", len(words))

	dist := wordfreq.NewDistribution(words)
	selected, drawErr := sampling.WeightedWithoutReplacement(dist, s.opts.NumWords, s.rng)
	if drawErr != nil {
		slog.Warn("Not enough distinct words for a full seed", "requested", s.opts.NumWords, "available", len(dist))
	}

	if len(selected) > 0 {
		line := strings.Join(selected, " ")
		if err := s.seeds.Append(line); err != nil {
			return selected, fmt.Errorf("failed to save seed words: %w", err)
		}
		slog.Info("Seed words generated", "words", line)
	}
	return selected, drawErr
}
