package seed_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/labadain/labadain-crawler/internal/corpus"
	"github.com/labadain/labadain-crawler/internal/seed"
	"google.golang.org/api/option"
)

type fakeSearcher struct {
	links []string
	err   error
	query string
	n     int
}

func (f *fakeSearcher) Search(_ context.Context, query string, n int) ([]string, error) {
	f.query, f.n = query, n
	return f.links, f.err
}

func newCollector(t *testing.T, searcher seed.Searcher, opts seed.URLOptions) (*seed.URLCollector, *corpus.Store, *corpus.Store) {
	t.Helper()
	dir := t.TempDir()
	urls := corpus.New(filepath.Join(dir, "seed_urls.txt"))
	domains := corpus.New(filepath.Join(dir, "domains.txt"))
	c, err := seed.NewURLCollector(searcher, urls, domains, opts)
	if err != nil {
		t.Fatalf("NewURLCollector() error = %v", err)
	}
	return c, urls, domains
}

var defaultURLOptions = seed.URLOptions{
	NumResults:         10,
	MaxURLLength:       60,
	ExcludedExtensions: []string{`\.pdf$`, `\.jpe?g$`},
	ExcludedDomains:    []string{"youtube.com", "facebook.com"},
}

func TestURLCollector_Collect(t *testing.T) {
	searcher := &fakeSearcher{links: []string{
		"https://www.tatoli.tl/2023/artigu-ida",
		"https://www.tatoli.tl/2023/artigu-rua",
		"https://www.tatoli.tl/2023/artigu-ida",
		"https://jornal.tl/Relatoriu.PDF",
		"https://www.youtube.com/watch?v=1",
		"https://tet.wikipedia.org/wiki/Timor-Leste_nia_istória_naruk_tebes_no_kompletu",
		"https://old.example.tl/page",
	}}
	c, urls, domains := newCollector(t, searcher, defaultURLOptions)
	if err := urls.Append("https://old.example.tl/page"); err != nil {
		t.Fatal(err)
	}
	if err := domains.Append("www.tatoli.tl"); err != nil {
		t.Fatal(err)
	}

	got, err := c.Collect(context.Background(), "ita diak lae")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if searcher.query != "ita diak lae" || searcher.n != 10 {
		t.Errorf("searcher called with %q, %d", searcher.query, searcher.n)
	}

	wantURLs := []string{
		"https://www.tatoli.tl/2023/artigu-ida",
		"https://www.tatoli.tl/2023/artigu-rua",
		"https://tet.wikipedia.org/wiki/Timor-Leste_nia_istória_naruk_tebes_no_kompletu",
	}
	if !slices.Equal(got.URLs, wantURLs) {
		t.Errorf("URLs = %q, want %q", got.URLs, wantURLs)
	}
	if want := []string{"tet.wikipedia.org"}; !slices.Equal(got.Domains, want) {
		t.Errorf("Domains = %q, want %q", got.Domains, want)
	}

	// the long wikipedia url is collected but not saved
	saved, _ := urls.LoadLines()
	wantSaved := []string{
		"https://old.example.tl/page",
		"https://www.tatoli.tl/2023/artigu-ida",
		"https://www.tatoli.tl/2023/artigu-rua",
	}
	if !slices.Equal(saved, wantSaved) {
		t.Errorf("seed url file = %q, want %q", saved, wantSaved)
	}
	savedDomains, _ := domains.LoadLines()
	if want := []string{"www.tatoli.tl", "tet.wikipedia.org"}; !slices.Equal(savedDomains, want) {
		t.Errorf("domain file = %q, want %q", savedDomains, want)
	}
}

func TestURLCollector_SearchError(t *testing.T) {
	boom := errors.New("quota exceeded")

	c, urls, _ := newCollector(t, &fakeSearcher{err: boom}, defaultURLOptions)
	if _, err := c.Collect(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("Collect() error = %v, want %v", err, boom)
	}

	// partial results are still used
	c, urls, _ = newCollector(t, &fakeSearcher{links: []string{"https://a.tl/1"}, err: boom}, defaultURLOptions)
	got, err := c.Collect(context.Background(), "x")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if !slices.Equal(got.URLs, []string{"https://a.tl/1"}) {
		t.Errorf("URLs = %q", got.URLs)
	}
	if ok, _ := urls.Contains("https://a.tl/1"); !ok {
		t.Errorf("partial result not saved")
	}
}

func TestNewURLCollector_InvalidPattern(t *testing.T) {
	_, err := seed.NewURLCollector(&fakeSearcher{}, nil, nil, seed.URLOptions{ExcludedExtensions: []string{"("}})
	if err == nil {
		t.Error("NewURLCollector() accepted an invalid pattern")
	}
}

func TestURLCollector_Allowed(t *testing.T) {
	c, _, _ := newCollector(t, &fakeSearcher{}, defaultURLOptions)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.tatoli.tl/", true},
		{"https://x.tl/file.pdf", false},
		{"https://x.tl/FILE.PDF", false},
		{"https://x.tl/photo.jpeg", false},
		{"https://x.tl/pdf-guide", true},
		{"https://m.facebook.com/page", false},
	}
	for _, tt := range tests {
		if got := c.Allowed(tt.url); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

// customSearchServer serves numbered links for every requested page
func customSearchServer(t *testing.T, total int) (*httptest.Server, *[]string) {
	t.Helper()
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/customsearch/v1") {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		requests = append(requests, fmt.Sprintf("cx=%s q=%s start=%s num=%s", q.Get("cx"), q.Get("q"), q.Get("start"), q.Get("num")))

		start, _ := strconv.Atoi(q.Get("start"))
		num, _ := strconv.Atoi(q.Get("num"))
		items := []map[string]string{}
		for i := start; i < start+num && i <= total; i++ {
			items = append(items, map[string]string{"link": fmt.Sprintf("https://site.tl/p%d", i)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestGoogleSearcher_Paging(t *testing.T) {
	srv, requests := customSearchServer(t, 100)

	searcher, err := seed.NewGoogleSearcher(context.Background(), "key", "engine",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewGoogleSearcher() error = %v", err)
	}

	links, err := searcher.Search(context.Background(), "ita diak", 15)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(links) != 15 || links[0] != "https://site.tl/p1" || links[14] != "https://site.tl/p15" {
		t.Errorf("Search() = %q", links)
	}
	want := []string{
		"cx=engine q=ita diak start=1 num=10",
		"cx=engine q=ita diak start=11 num=5",
	}
	if !slices.Equal(*requests, want) {
		t.Errorf("requests = %q, want %q", *requests, want)
	}
}

func TestGoogleSearcher_StopsOnShortPage(t *testing.T) {
	srv, requests := customSearchServer(t, 4)

	searcher, err := seed.NewGoogleSearcher(context.Background(), "key", "engine",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	links, err := searcher.Search(context.Background(), "x", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 4 || len(*requests) != 1 {
		t.Errorf("got %d links in %d requests, want 4 in 1", len(links), len(*requests))
	}
}
