// Package classify provides the language gate that screens titles, content lines and
// tokens before they reach the corpus.
//
// The gate wraps an opaque probabilistic language classifier. For every input text the
// classifier returns one probability per supported language class; the gate keeps a
// text when the probability of the target class, rounded to two decimals, meets the
// configured threshold. Output preserves the input order.
package classify

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// ErrClassifierUnavailable marks a gate whose classifier could not be loaded.
var ErrClassifierUnavailable = errors.New("language classifier unavailable")

// Prediction is the classifier output for a batch: Probs[i][j] is the probability
// that text i belongs to Classes[j].
type Prediction struct {
	Classes []string
	Probs   [][]float64
}

// Classifier scores a batch of texts against every language it knows.
type Classifier interface {
	PredictProba(texts []string) (*Prediction, error)
}

// Gate filters texts down to those in the target language.
// A loaded Gate is read-only and can be shared between goroutines.
type Gate struct {
	classifier Classifier
	language   string
	threshold  float64
	err        error
}

// NewGate creates a gate over an already loaded classifier.
func NewGate(classifier Classifier, language string, threshold float64) *Gate {
	g := &Gate{
		classifier: classifier,
		language:   language,
		threshold:  threshold,
	}
	if classifier == nil {
		g.err = ErrClassifierUnavailable
	}
	return g
}

// LoadGate loads the model artifact at modelPath and returns a gate over it.
// When the artifact is missing or unreadable a warning is logged and the returned
// gate lets nothing through; Err reports the cause.
func LoadGate(modelPath, language string, threshold float64) *Gate {
	model, err := LoadModel(modelPath)
	if err != nil {
		slog.Warn("Language model not loaded; every text will be rejected", "path", modelPath, "error", err)
		return &Gate{
			language:  language,
			threshold: threshold,
			err:       fmt.Errorf("%w: %v", ErrClassifierUnavailable, err),
		}
	}
	slog.Debug("Language model loaded", "path", modelPath, "classes", model.Classes)
	return NewGate(model, language, threshold)
}

// Err returns the load error of the gate, or nil when a classifier is available.
func (g *Gate) Err() error {
	return g.err
}

// Language returns the target language class.
func (g *Gate) Language() string {
	return g.language
}

// Filter returns the order-preserving subsequence of texts whose target-language
// probability meets the threshold. A gate without a classifier returns an empty
// result and no error; inference failures are returned.
func (g *Gate) Filter(texts []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	if g.classifier == nil {
		slog.Debug("Gate has no classifier, rejecting batch", "size", len(texts))
		return []string{}, nil
	}

	pred, err := g.classifier.PredictProba(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to classify %d texts: %w", len(texts), err)
	}
	if len(pred.Probs) != len(texts) {
		return nil, fmt.Errorf("classifier returned %d rows for %d texts", len(pred.Probs), len(texts))
	}

	column := -1
	for j, class := range pred.Classes {
		if class == g.language {
			column = j
			break
		}
	}
	if column < 0 {
		slog.Warn("Target language is not a classifier class", "language", g.language, "classes", pred.Classes)
		return []string{}, nil
	}

	kept := make([]string, 0, len(texts))
	for i, probs := range pred.Probs {
		if column >= len(probs) {
			return nil, fmt.Errorf("classifier row %d has %d columns, want %d", i, len(probs), len(pred.Classes))
		}
		if round2(probs[column]) >= g.threshold {
			kept = append(kept, texts[i])
		}
	}
	return kept, nil
}

// round2 rounds half away from zero to two decimal places
func round2(p float64) float64 {
	return math.Round(p*100) / 100
}
