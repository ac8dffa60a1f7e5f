// Package weburl derives the domain and file extension of crawled urls.
package weburl

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Domain returns the registered domain of rawURL with its subdomain, e.g.
// "www.tatoli.tl". It returns "" when no registrable domain can be derived.
func Domain(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return ""
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return ""
	}
	return host
}

// office formats are reported under their current extension
var extensionAliases = map[string]string{
	".doc":  ".docx",
	".xls":  ".xlsx",
	".ppt":  ".pptx",
	".pps":  ".pptx",
	".ppsx": ".pptx",
}

// Extension returns the lowercased file extension of the url path, including the
// dot, or "" when the last path segment has none.
func Extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(path.Base(p)))
	if ext == "." {
		return ""
	}
	if alias, ok := extensionAliases[ext]; ok {
		return alias
	}
	return ext
}
