package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"
)

// Model is a character n-gram multinomial Naive Bayes language identifier.
//
// The artifact is a JSON document:
//
//	{
//	  "classes":  ["tet", "pt", "en", "id"],
//	  "orders":   [1, 2, 3],
//	  "priors":   [-1.2, -1.5, ...],            // log P(class)
//	  "unseen":   [-14.1, -13.8, ...],          // log P(ngram | class) for unknown n-grams
//	  "features": {"ka": [-5.1, -6.3, ...], ...} // log P(ngram | class)
//	}
//
// Every per-class slice is aligned with Classes.
type Model struct {
	Classes  []string             `json:"classes"`
	Orders   []int                `json:"orders"`
	Priors   []float64            `json:"priors"`
	Unseen   []float64            `json:"unseen"`
	Features map[string][]float64 `json:"features"`
}

// LoadModel reads and validates a model artifact.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open language model %q: %w", path, err)
	}
	defer f.Close()

	var m Model
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode language model %q: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid language model %q: %w", path, err)
	}
	return &m, nil
}

// Validate checks that every per-class vector matches the class list.
func (m *Model) Validate() error {
	n := len(m.Classes)
	if n == 0 {
		return fmt.Errorf("no classes")
	}
	if len(m.Orders) == 0 {
		return fmt.Errorf("no n-gram orders")
	}
	for _, order := range m.Orders {
		if order <= 0 {
			return fmt.Errorf("n-gram order %d must be positive", order)
		}
	}
	if len(m.Priors) != n {
		return fmt.Errorf("%d priors for %d classes", len(m.Priors), n)
	}
	if len(m.Unseen) != n {
		return fmt.Errorf("%d unseen weights for %d classes", len(m.Unseen), n)
	}
	for gram, weights := range m.Features {
		if len(weights) != n {
			return fmt.Errorf("feature %q has %d weights for %d classes", gram, len(weights), n)
		}
	}
	return nil
}

// PredictProba returns the posterior class distribution of every text.
func (m *Model) PredictProba(texts []string) (*Prediction, error) {
	probs := make([][]float64, len(texts))
	for i, text := range texts {
		scores := make([]float64, len(m.Classes))
		copy(scores, m.Priors)

		for _, gram := range ngrams(text, m.Orders) {
			weights, ok := m.Features[gram]
			if !ok {
				weights = m.Unseen
			}
			for c := range scores {
				scores[c] += weights[c]
			}
		}
		probs[i] = softmax(scores)
	}
	return &Prediction{Classes: m.Classes, Probs: probs}, nil
}

// ngrams lowercases text, collapses whitespace, pads it with one space on each side
// and returns every rune n-gram for the requested orders
func ngrams(text string, orders []int) []string {
	normalized := " " + strings.Join(strings.FieldsFunc(strings.ToLower(text), unicode.IsSpace), " ") + " "
	runes := []rune(normalized)

	var grams []string
	for _, n := range orders {
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}

// softmax converts log scores into probabilities
func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
