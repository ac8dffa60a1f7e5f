// Package tokenize splits text into word tokens for seed word sampling.
//
// Two tokenizers are available behind the Tokenizer interface: Word, a rule-based
// scanner that keeps Tetun word-internal apostrophes and hyphens (ne'e, Timor-Leste),
// and Prose, which delegates to the prose NLP tokenizer.
package tokenize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// Tokenizer splits text into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Kind names a tokenizer implementation in configuration.
type Kind string

const (
	// KindWord selects the rule-based Word tokenizer (default)
	KindWord Kind = "word"
	// KindProse selects the prose tokenizer
	KindProse Kind = "prose"
)

// New returns the tokenizer for kind.
func New(kind Kind) (Tokenizer, error) {
	switch kind {
	case KindWord, "":
		return Word{}, nil
	case KindProse:
		return Prose{}, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", kind)
	}
}

// Word splits on everything that is not a letter or a digit, keeping apostrophes and
// hyphens that sit between two word characters. Pure numbers are dropped.
type Word struct{}

// Tokenize implements Tokenizer.
func (Word) Tokenize(text string) []string {
	runes := []rune(text)
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := current.String()
		current.Reset()
		if !isNumeric(word) {
			tokens = append(tokens, word)
		}
	}

	for i, r := range runes {
		switch {
		case isWordRune(r):
			current.WriteRune(r)
		case isJoiner(r) && current.Len() > 0 && i+1 < len(runes) && isWordRune(runes[i+1]):
			current.WriteRune(normalizeJoiner(r))
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// Prose tokenizes with the prose library, keeping only tokens that contain a letter.
type Prose struct{}

// Tokenize implements Tokenizer. Text prose cannot process yields no tokens.
func (Prose) Tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil
	}

	var tokens []string
	for _, tok := range doc.Tokens() {
		if strings.IndexFunc(tok.Text, unicode.IsLetter) >= 0 {
			tokens = append(tokens, tok.Text)
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-'
}

// normalizeJoiner maps the typographic apostrophe to the ASCII one
func normalizeJoiner(r rune) rune {
	if r == '’' {
		return '\''
	}
	return r
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}
