package counter

import (
	"log/slog"
	"strings"
)

// WordCounter counts whitespace-separated words.
type WordCounter struct{}

// NewWordCounter creates a new WordCounter instance.
func NewWordCounter() Counter {
	return &WordCounter{}
}

// Count returns the number of whitespace-separated words in text. Tetun words
// joined by apostrophes or hyphens (ne'e, Timor-Leste) count once.
func (wc *WordCounter) Count(text string) int {
	wordCount := len(strings.Fields(text))
	slog.Debug("Word count calculated", "bytes", len(text), "words", wordCount)
	return wordCount
}

// Name returns the unit name used in reports.
func (wc *WordCounter) Name() string {
	return "words"
}
