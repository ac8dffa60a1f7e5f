// Package extract turns HTML into the plain text lines the corpus is made of.
// It strips markup from single content lines and, for page previews, extracts the
// readable body of a full page.
package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ToMarkdown extracts the main content from HTML and converts it to Markdown.
//
// Parameters:
//   - content: io.Reader containing HTML content
//   - selector: optional CSS selector to restrict extraction (empty for readability)
//   - includeAll: if true, skips readability extraction and converts all HTML content
//   - baseURL: optional URL for context during readability extraction (can be nil)
func ToMarkdown(content io.Reader, selector string, includeAll bool, baseURL *url.URL) (string, error) {
	if selector != "" {
		return extractWithSelector(content, selector)
	}
	if includeAll {
		return convertAllHTML(content)
	}
	return extractMainContent(content, baseURL)
}

// extractMainContent uses go-readability to extract the main article content
func extractMainContent(content io.Reader, baseURL *url.URL) (string, error) {
	if baseURL == nil {
		baseURL = &url.URL{}
	}

	article, err := readability.FromReader(content, baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract main content: %w", err)
	}

	body, err := convertToMarkdown(article.Content)
	if err != nil {
		return "", err
	}
	// readability drops the page title from the body; keep it as the first line
	if title := strings.TrimSpace(article.Title); title != "" {
		body = "# " + title + "\n\n" + body
	}
	return body, nil
}

// extractWithSelector uses a CSS selector to extract specific content
func extractWithSelector(content io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return "", fmt.Errorf("no elements found matching selector: %s", selector)
	}

	var htmlParts []string
	selection.Each(func(i int, s *goquery.Selection) {
		html, err := goquery.OuterHtml(s)
		if err == nil {
			htmlParts = append(htmlParts, html)
		}
	})
	if len(htmlParts) == 0 {
		return "", fmt.Errorf("failed to extract HTML from selection")
	}

	return convertToMarkdown(strings.Join(htmlParts, "\n"))
}

// convertAllHTML converts all HTML content to Markdown without filtering
func convertAllHTML(content io.Reader) (string, error) {
	htmlBytes, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("failed to read HTML content: %w", err)
	}
	return convertToMarkdown(string(htmlBytes))
}

// convertToMarkdown converts HTML string to Markdown with one block per line group
func convertToMarkdown(htmlString string) (string, error) {
	converter := md.NewConverter("", true, nil)

	// scripts, styles and forms never carry corpus text
	converter.Remove("script", "style", "noscript", "form", "nav")

	markdown, err := converter.ConvertString(htmlString)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	cleaned := strings.TrimSpace(markdown)
	for strings.Contains(cleaned, "\n\n\n") {
		cleaned = strings.ReplaceAll(cleaned, "\n\n\n", "\n\n")
	}
	return cleaned, nil
}
