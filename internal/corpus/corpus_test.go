package corpus_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/labadain/labadain-crawler/internal/corpus"
)

func TestEntryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_corpus.txt")
	store := corpus.New(path)

	w, err := store.OpenWriter()
	if err != nil {
		t.Fatalf("OpenWriter() error = %v", err)
	}
	if err := w.WriteEntry(corpus.Entry{Title: "T", URL: "http://x", Lines: []string{"hello", "world"}}); err != nil {
		t.Fatalf("WriteEntry() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	paragraphs, err := store.LoadParagraphs()
	if err != nil {
		t.Fatalf("LoadParagraphs() error = %v", err)
	}
	want := []string{"T\nhttp://x\nhello\nworld\n"}
	if !reflect.DeepEqual(paragraphs, want) {
		t.Errorf("LoadParagraphs() = %q, want %q", paragraphs, want)
	}
}

func TestAppendAndLoadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed_words.txt")
	store := corpus.New(path)

	for _, line := range []string{"ema tetun  ", "lian"} {
		if err := store.Append(line); err != nil {
			t.Fatalf("Append(%q) error = %v", line, err)
		}
	}
	if err := store.AppendBlank(); err != nil {
		t.Fatalf("AppendBlank() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "ema tetun  \nlian\n\n" {
		t.Errorf("file contents = %q", raw)
	}

	lines, err := store.LoadLines()
	if err != nil {
		t.Fatalf("LoadLines() error = %v", err)
	}
	want := []string{"ema tetun", "lian", ""}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("LoadLines() = %q, want %q", lines, want)
	}
}

func TestLoadLinesErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr error
	}{
		{
			name: "missing file",
			setup: func(t *testing.T) string {
				return filepath.Join(dir, "missing.txt")
			},
			wantErr: corpus.ErrNotFound,
		},
		{
			name: "invalid utf-8",
			setup: func(t *testing.T) string {
				path := filepath.Join(dir, "latin1.txt")
				if err := os.WriteFile(path, []byte{0x66, 0x6f, 0xff, 0xfe, '\n'}, 0o644); err != nil {
					t.Fatal(err)
				}
				return path
			},
			wantErr: corpus.ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := corpus.New(tt.setup(t)).LoadLines()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LoadLines() error = %v, want %v", err, tt.wantErr)
			}
			if len(lines) != 0 {
				t.Errorf("LoadLines() = %q, want empty", lines)
			}
		})
	}
}

func TestLoadLinesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	lines, err := corpus.New(path).LoadLines()
	if err != nil {
		t.Fatalf("LoadLines() error = %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("LoadLines() = %q, want empty", lines)
	}
}

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"single record", "A\nu\nline\n\n", []string{"A\nu\nline\n"}},
		{"two records", "A\nu\n\nB\nv\nx\n\n", []string{"A\nu\n", "B\nv\nx\n"}},
		{"missing final terminator", "A\nu\n\nB\nv", []string{"A\nu\n", "B\nv\n"}},
		{"extra blank lines", "A\nu\n\n\n\nB\nv\n\n", []string{"A\nu\n", "B\nv\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := corpus.SplitParagraphs(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitParagraphs(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	dir := t.TempDir()
	store := corpus.New(filepath.Join(dir, "domains.txt"))

	ok, err := store.Contains("tatoli.tl")
	if err != nil {
		t.Fatalf("Contains() on missing file error = %v", err)
	}
	if ok {
		t.Error("Contains() on missing file = true")
	}

	if err := store.Append("tatoli.tl"); err != nil {
		t.Fatal(err)
	}
	ok, err = store.Contains("tatoli.tl")
	if err != nil || !ok {
		t.Errorf("Contains(tatoli.tl) = %v, %v; want true, nil", ok, err)
	}
}
