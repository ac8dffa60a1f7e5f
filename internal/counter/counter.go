// Package counter measures the size of corpus text.
//
// Three counting methods are available: tiktoken tokens (cl100k_base encoding),
// whitespace-separated words and Unicode characters. Collection statistics report
// the corpus size under all three.
//
// Usage Example:
//
//	size, err := counter.Measure(corpusText)
//	// size.Tokens, size.Words, size.Characters
package counter

import "fmt"

// Counter counts units of text.
type Counter interface {
	// Count returns the number of units (tokens, words, or characters) in text.
	Count(text string) int

	// Name returns a human-readable name for the unit (for logging and reports)
	Name() string
}

// CountingMethod selects a Counter.
type CountingMethod int

const (
	// Tokens uses tiktoken with cl100k_base encoding
	Tokens CountingMethod = iota
	// Words counts whitespace-separated words
	Words
	// Characters counts runes including whitespace
	Characters
)

// String returns the string representation of the counting method.
func (cm CountingMethod) String() string {
	switch cm {
	case Tokens:
		return "tokens"
	case Words:
		return "words"
	case Characters:
		return "characters"
	default:
		return "unknown"
	}
}

// NewCounter returns the Counter for method. Unknown methods fall back to tokens.
// Only the token counter can fail, when the encoding cannot be loaded.
func NewCounter(method CountingMethod) (Counter, error) {
	switch method {
	case Words:
		return NewWordCounter(), nil
	case Characters:
		return NewCharCounter(), nil
	default:
		return NewTokenCounter()
	}
}

// Size is the size of a text under every counting method.
type Size struct {
	Tokens     int
	Words      int
	Characters int
}

// Add returns the sum of two sizes.
func (s Size) Add(other Size) Size {
	return Size{
		Tokens:     s.Tokens + other.Tokens,
		Words:      s.Words + other.Words,
		Characters: s.Characters + other.Characters,
	}
}

// String formats the size for reports.
func (s Size) String() string {
	return fmt.Sprintf("%d tokens, %d words, %d characters", s.Tokens, s.Words, s.Characters)
}

// Measure counts text with every counting method.
func Measure(text string) (Size, error) {
	tokens, err := NewTokenCounter()
	if err != nil {
		return Size{}, err
	}
	return Size{
		Tokens:     tokens.Count(text),
		Words:      NewWordCounter().Count(text),
		Characters: NewCharCounter().Count(text),
	}, nil
}
