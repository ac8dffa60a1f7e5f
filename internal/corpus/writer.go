package corpus

import (
	"bufio"
	"fmt"
	"os"
)

// Writer appends to a Store through a single open, buffered file handle.
// It is owned by one run and is not safe for concurrent use.
type Writer struct {
	file *os.File
	buf  *bufio.Writer
}

// OpenWriter opens the store for appending, creating the file when needed.
func (s *Store) OpenWriter() (*Writer, error) {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q for append: %w", s.path, err)
	}
	return &Writer{file: f, buf: bufio.NewWriter(f)}, nil
}

// Append writes line followed by a newline.
func (w *Writer) Append(line string) error {
	if _, err := w.buf.WriteString(line); err != nil {
		return err
	}
	return w.buf.WriteByte('\n')
}

// AppendBlank writes a bare newline.
func (w *Writer) AppendBlank() error {
	return w.buf.WriteByte('\n')
}

// WriteEntry writes a complete record: title, url, lines and the blank terminator.
func (w *Writer) WriteEntry(e Entry) error {
	if err := w.Append(e.Title); err != nil {
		return err
	}
	if err := w.Append(e.URL); err != nil {
		return err
	}
	for _, line := range e.Lines {
		if err := w.Append(line); err != nil {
			return err
		}
	}
	return w.AppendBlank()
}

// Flush pushes buffered lines to the file.
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush %q: %w", w.file.Name(), err)
	}
	return nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	flushErr := w.Flush()
	closeErr := w.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
