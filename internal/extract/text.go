package extract

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// StripMarkup removes HTML tags from a single line and unescapes HTML entities.
// Lines without markup characters are returned unchanged.
func StripMarkup(line string) (string, error) {
	if !strings.ContainsAny(line, "<&") {
		return line, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(line))
	if err != nil {
		return "", fmt.Errorf("failed to parse markup: %w", err)
	}
	return doc.Text(), nil
}

// markdownPatterns holds compiled regex patterns for markdown syntax removal
type markdownPatterns struct {
	headerRegex     *regexp.Regexp
	bulletListRegex *regexp.Regexp
	numberListRegex *regexp.Regexp
	quoteRegex      *regexp.Regexp
	imageRegex      *regexp.Regexp
	linkRegex       *regexp.Regexp
	emphasisRegex   *regexp.Regexp
	inlineCodeRegex *regexp.Regexp
}

var (
	patterns     *markdownPatterns
	patternsOnce sync.Once
)

// getMarkdownPatterns returns the singleton instance of compiled regex patterns
func getMarkdownPatterns() *markdownPatterns {
	patternsOnce.Do(func() {
		patterns = &markdownPatterns{
			headerRegex:     regexp.MustCompile(`^\s*#{1,6}\s+`),
			bulletListRegex: regexp.MustCompile(`^\s*[-*+]\s+`),
			numberListRegex: regexp.MustCompile(`^\s*\d+\.\s+`),
			quoteRegex:      regexp.MustCompile(`^\s*>\s?`),
			imageRegex:      regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`),
			linkRegex:       regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`),
			emphasisRegex:   regexp.MustCompile(`(\*\*|__|\*|_)([^*_\s][^*_]*?)(\*\*|__|\*|_)`),
			inlineCodeRegex: regexp.MustCompile("`([^`]+)`"),
		}
	})
	return patterns
}

// PlainLines converts Markdown into plain text lines, keeping blank lines between
// blocks so the corpus blank-line policy sees the same structure a crawler would.
func PlainLines(markdown string) []string {
	p := getMarkdownPatterns()

	raw := strings.Split(markdown, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		line = p.headerRegex.ReplaceAllString(line, "")
		line = p.bulletListRegex.ReplaceAllString(line, "")
		line = p.numberListRegex.ReplaceAllString(line, "")
		line = p.quoteRegex.ReplaceAllString(line, "")
		line = p.imageRegex.ReplaceAllString(line, "")
		line = p.linkRegex.ReplaceAllString(line, "$1")
		line = p.emphasisRegex.ReplaceAllString(line, "$2")
		line = p.inlineCodeRegex.ReplaceAllString(line, "$1")
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}
