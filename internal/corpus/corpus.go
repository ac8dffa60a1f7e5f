// Package corpus provides the append-only, line-oriented text store used for the
// final corpus and for the one-value-per-line pipeline files (seed words, seed
// urls, domains, statistics).
//
// A corpus file holds records separated by a single blank line; each record is a
// title line, a url line and zero or more content lines (see Entry).
package corpus

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when the backing file does not exist.
	ErrNotFound = errors.New("corpus file not found")
	// ErrDecode is returned when the backing file is not valid UTF-8.
	ErrDecode = errors.New("corpus file is not valid utf-8")
)

// paragraphSeparator is the blank line that terminates every record
const paragraphSeparator = "\n\n"

// Entry is one title+url+content record of the corpus.
type Entry struct {
	Title string
	URL   string
	Lines []string
}

// Store is a text file addressed by path. Reads load the whole file; writes append.
type Store struct {
	path string
}

// New returns a Store for the file at path. The file is not touched until used.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the path of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Append writes line followed by a newline to the end of the file.
func (s *Store) Append(line string) error {
	return s.appendString(line + "\n")
}

// AppendBlank writes a bare newline, terminating the current record.
func (s *Store) AppendBlank() error {
	return s.appendString("\n")
}

func (s *Store) appendString(text string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %q for append: %w", s.path, err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %q: %w", s.path, err)
	}
	return f.Close()
}

// LoadLines returns the file as one entry per line with trailing whitespace removed.
//
// A missing file yields ErrNotFound and an invalid encoding yields ErrDecode; both
// come with an empty result and are logged, so callers may treat them as
// "nothing available".
func (s *Store) LoadLines() ([]string, error) {
	text, err := s.LoadWholeText()
	if err != nil {
		return nil, err
	}
	if text == "" {
		return []string{}, nil
	}

	// a trailing newline terminates the last line rather than opening a new one
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return lines, nil
}

// LoadWholeText returns the raw file contents.
func (s *Store) LoadWholeText() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("File not found", "path", s.path)
		return "", fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", s.path, err)
	}
	if !utf8.Valid(data) {
		slog.Warn("Cannot decode file", "path", s.path)
		return "", fmt.Errorf("%w: %s", ErrDecode, s.path)
	}
	return string(data), nil
}

// LoadParagraphs splits the file on blank lines. Every paragraph keeps the newline
// of its last line and empty pieces are dropped, so a record written with
// Writer.WriteEntry reloads as "title\nurl\nline...\n".
func (s *Store) LoadParagraphs() ([]string, error) {
	text, err := s.LoadWholeText()
	if err != nil {
		return nil, err
	}
	return SplitParagraphs(text), nil
}

// SplitParagraphs applies the LoadParagraphs rules to text.
func SplitParagraphs(text string) []string {
	pieces := strings.Split(text, paragraphSeparator)
	paragraphs := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		if !strings.HasSuffix(piece, "\n") {
			piece += "\n"
		}
		paragraphs = append(paragraphs, piece)
	}
	return paragraphs
}

// Set loads the file into a membership set of its lines. A missing file is an
// empty set.
func (s *Store) Set() (map[string]struct{}, error) {
	lines, err := s.LoadLines()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		set[line] = struct{}{}
	}
	return set, nil
}

// Contains reports whether value is one of the file's lines.
func (s *Store) Contains(value string) (bool, error) {
	set, err := s.Set()
	if err != nil {
		return false, err
	}
	_, ok := set[value]
	return ok, nil
}
