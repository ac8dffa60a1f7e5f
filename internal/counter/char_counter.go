package counter

import (
	"log/slog"
	"unicode/utf8"
)

// CharCounter counts Unicode characters (runes), not bytes.
type CharCounter struct{}

// NewCharCounter creates a new CharCounter instance.
func NewCharCounter() Counter {
	return &CharCounter{}
}

// Count returns the number of runes in text.
func (cc *CharCounter) Count(text string) int {
	charCount := utf8.RuneCountInString(text)
	slog.Debug("Character count calculated", "bytes", len(text), "characters", charCount)
	return charCount
}

// Name returns the unit name used in reports.
func (cc *CharCounter) Name() string {
	return "characters"
}
