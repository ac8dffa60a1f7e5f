package app_test

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/labadain/labadain-crawler/internal/app"
	"github.com/labadain/labadain-crawler/internal/builder"
	"github.com/labadain/labadain-crawler/internal/classify"
	"github.com/labadain/labadain-crawler/internal/config"
	"github.com/labadain/labadain-crawler/internal/index"
	"github.com/labadain/labadain-crawler/internal/runlog"
	"github.com/labadain/labadain-crawler/internal/sampling"
)

// englishGate rejects every text mentioning "english"
type englishGate struct{}

func (englishGate) Filter(texts []string) ([]string, error) {
	kept := []string{}
	for _, t := range texts {
		if !strings.Contains(strings.ToLower(t), "english") {
			kept = append(kept, t)
		}
	}
	return kept, nil
}

type docSource []index.RawDocument

func (s docSource) Documents(_ context.Context, start, _ int) iter.Seq2[index.RawDocument, error] {
	return func(yield func(index.RawDocument, error) bool) {
		for _, d := range s[min(start, len(s)):] {
			if !yield(d, nil) {
				return
			}
		}
	}
}

type fakeSearcher struct {
	queries []string
	links   []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]string, error) {
	f.queries = append(f.queries, query)
	return f.links, nil
}

func ptr(s string) *string { return &s }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		Data:       filepath.Join(root, "data"),
		Seeds:      filepath.Join(root, "nutch", "urls"),
		LID:        filepath.Join(root, "lid"),
		EvalSample: filepath.Join(root, "eval"),
	}
	cfg.Params.StatsRateLimit = 0
	if err := cfg.EnsureFiles(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newApp(cfg config.Config, opts ...app.Option) *app.App {
	base := []app.Option{app.WithGate(englishGate{}), app.WithRand(sampling.NewRand(5)), app.WithQuiet(true)}
	return app.New(cfg, append(base, opts...)...)
}

func TestBuildCorpus(t *testing.T) {
	cfg := testConfig(t)
	source := docSource{
		{Title: ptr("Notísia ohin"), URL: "https://tatoli.tl/a", Content: ptr("Governu lansa programa.\nEnglish summary here.\nPovu kontente.")},
		{Title: ptr("English title"), URL: "https://tatoli.tl/b", Content: ptr("x")},
		{Title: ptr("Notísia ohin"), URL: "https://tatoli.tl/c", Content: ptr("y")},
	}
	a := newApp(cfg, app.WithSource(source))

	report, err := a.BuildCorpus(context.Background(), app.CorpusOptions{})
	if err != nil {
		t.Fatalf("BuildCorpus() error = %v", err)
	}
	if report.Accepted != 1 || report.TotalSkipped() != 2 {
		t.Errorf("report = %d accepted, %d skipped, want 1 and 2", report.Accepted, report.TotalSkipped())
	}

	want := "Notísia ohin\nhttps://tatoli.tl/a\nGovernu lansa programa.\nPovu kontente.\n\n"
	if got := readFile(t, cfg.FilePath(config.FinalCorpus)); got != want {
		t.Errorf("final corpus = %q, want %q", got, want)
	}

	runs, err := a.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != report.RunID || runs[0].Kind != runlog.KindCorpus || runs[0].Accepted != 1 || runs[0].Skipped != 2 {
		t.Errorf("recorded runs = %+v", runs)
	}
}

func intPtr(n int) *int { return &n }

func TestBuildCorpus_StartOverride(t *testing.T) {
	tests := []struct {
		name        string
		configStart int
		start       *int
		want        string
	}{
		{name: "config start", configStart: 1, want: "Rua\nhttps://a.tl/2\nrua\n\n"},
		{name: "flag overrides config", configStart: 0, start: intPtr(1), want: "Rua\nhttps://a.tl/2\nrua\n\n"},
		{name: "zero overrides config", configStart: 1, start: intPtr(0), want: "Ida\nhttps://a.tl/1\nida\n\nRua\nhttps://a.tl/2\nrua\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Params.SolrStart = tt.configStart
			source := docSource{
				{Title: ptr("Ida"), URL: "https://a.tl/1", Content: ptr("ida")},
				{Title: ptr("Rua"), URL: "https://a.tl/2", Content: ptr("rua")},
			}
			a := newApp(cfg, app.WithSource(source))

			if _, err := a.BuildCorpus(context.Background(), app.CorpusOptions{Start: tt.start}); err != nil {
				t.Fatal(err)
			}
			if got := readFile(t, cfg.FilePath(config.FinalCorpus)); got != tt.want {
				t.Errorf("final corpus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildCorpus_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts app.CorpusOptions
	}{
		{name: "negative start", opts: app.CorpusOptions{Start: intPtr(-1)}},
		{name: "zero rows", opts: app.CorpusOptions{Rows: intPtr(0)}},
		{name: "zero newline cap", opts: app.CorpusOptions{MaxNewlines: intPtr(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newApp(testConfig(t), app.WithSource(docSource{}))
			if _, err := a.BuildCorpus(context.Background(), tt.opts); err == nil {
				t.Error("BuildCorpus() error = nil, want invalid options")
			}
		})
	}
}

func TestBuildCorpus_MissingModel(t *testing.T) {
	cfg := testConfig(t)
	source := docSource{{Title: ptr("Ida"), URL: "https://a.tl/1", Content: ptr("ida")}}
	a := app.New(cfg, app.WithSource(source), app.WithQuiet(true))

	report, err := a.BuildCorpus(context.Background(), app.CorpusOptions{})
	if err != nil {
		t.Fatalf("BuildCorpus() error = %v, want nil", err)
	}
	if report.Accepted != 0 || report.Skipped[builder.SkipTitleLanguage] != 1 {
		t.Errorf("report = %d accepted, skipped %v", report.Accepted, report.Skipped)
	}
	if report.Outcome() != builder.OutcomeSuccess {
		t.Errorf("Outcome() = %q, want success", report.Outcome())
	}
	if got := readFile(t, cfg.FilePath(config.FinalCorpus)); got != "" {
		t.Errorf("final corpus = %q, want empty", got)
	}

	runs, err := a.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || !strings.Contains(runs[0].Detail, classify.ErrClassifierUnavailable.Error()) {
		t.Errorf("recorded runs = %+v, want detail naming the missing model", runs)
	}
}

func TestGenerateSeeds_WordsOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Params.CorpusSampleRatio = 1
	cfg.Params.NumSeedWordSample = 2
	writeFile(t, cfg.FilePath(config.MainCorpus), "Ita boot diak\nHau hakarak bee\nEnglish words\n")
	a := newApp(cfg)

	results, err := a.GenerateSeeds(context.Background(), app.SeedOptions{Runs: 3, WordsOnly: true})
	if err != nil {
		t.Fatalf("GenerateSeeds() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("GenerateSeeds() returned %d runs, want 3", len(results))
	}
	for _, r := range results {
		if len(r.Words) != 2 || slices.Contains(r.Words, "english") {
			t.Errorf("run words = %q", r.Words)
		}
	}

	lines := strings.Split(strings.TrimSpace(readFile(t, cfg.FilePath(config.SeedWords))), "\n")
	if len(lines) != 3 {
		t.Errorf("seed words file has %d lines, want 3", len(lines))
	}
	runs, _ := a.ListRuns(context.Background(), 0)
	if len(runs) != 3 || runs[0].Kind != runlog.KindSeed {
		t.Errorf("recorded runs = %+v", runs)
	}
}

func TestGenerateSeeds_CollectsURLs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Params.CorpusSampleRatio = 1
	cfg.Params.NumSeedWordSample = 1
	writeFile(t, cfg.FilePath(config.MainCorpus), "lafaek\n")
	searcher := &fakeSearcher{links: []string{"https://www.tatoli.tl/lafaek", "https://www.youtube.com/watch?v=1"}}
	a := newApp(cfg, app.WithSearcher(searcher))

	results, err := a.GenerateSeeds(context.Background(), app.SeedOptions{Runs: 1})
	if err != nil {
		t.Fatalf("GenerateSeeds() error = %v", err)
	}
	if !slices.Equal(searcher.queries, []string{"lafaek"}) {
		t.Errorf("queries = %q", searcher.queries)
	}
	if !slices.Equal(results[0].Collected.URLs, []string{"https://www.tatoli.tl/lafaek"}) {
		t.Errorf("collected = %+v", results[0].Collected)
	}
	if got := readFile(t, cfg.FilePath(config.SeedURLs)); got != "https://www.tatoli.tl/lafaek\n" {
		t.Errorf("seed urls = %q", got)
	}
	if got := readFile(t, cfg.FilePath(config.Domains)); got != "www.tatoli.tl\n" {
		t.Errorf("domains = %q", got)
	}
}

func TestGenerateSeeds_NoCredentials(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(cfg)

	if _, err := a.GenerateSeeds(context.Background(), app.SeedOptions{Runs: 1}); !errors.Is(err, app.ErrNoSearchCredentials) {
		t.Errorf("GenerateSeeds() error = %v, want ErrNoSearchCredentials", err)
	}
}

func TestGenerateSeeds_EmptyCorpus(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(cfg)

	_, err := a.GenerateSeeds(context.Background(), app.SeedOptions{Runs: 1, WordsOnly: true})
	if !errors.Is(err, sampling.ErrInsufficientSample) {
		t.Errorf("GenerateSeeds() error = %v, want ErrInsufficientSample", err)
	}
	runs, _ := a.ListRuns(context.Background(), 0)
	if len(runs) != 1 || runs[0].Outcome != "failure" {
		t.Errorf("recorded runs = %+v", runs)
	}
}

func linkServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".pdf") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><a href="/ida">ida</a><a href="https://other.tl/">other</a></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCollectStats(t *testing.T) {
	cfg := testConfig(t)
	srv := linkServer(t)
	writeFile(t, cfg.FilePath(config.FinalCorpus),
		"Ida\n"+srv.URL+"/ida\nliafuan ida\n\nRua\n"+srv.URL+"/rua.pdf\nliafuan rua\n\n")
	a := newApp(cfg, app.WithHTTPClient(srv.Client()))

	summary, err := a.CollectStats(context.Background(), app.StatsOptions{})
	if err != nil {
		t.Fatalf("CollectStats() error = %v", err)
	}
	if summary.Collection.Documents != 2 || summary.Collection.Extensions[".pdf"] != 1 {
		t.Errorf("collection = %+v", summary.Collection)
	}
	if summary.Size.Words == 0 || len(summary.Links) != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if got := readFile(t, cfg.FilePath(config.StatsInOutLinks)); !strings.Contains(got, "Total web pages (urls) processed: 2") {
		t.Errorf("stats file = %q", got)
	}
	if got := readFile(t, cfg.FilePath(config.URLInOutLinks)); got != "" {
		t.Errorf("url links written without Links: %q", got)
	}

	summary, err = a.CollectStats(context.Background(), app.StatsOptions{Links: true})
	if err != nil {
		t.Fatalf("CollectStats(Links) error = %v", err)
	}
	// the missing pdf is left out
	if len(summary.Links) != 1 || summary.Links[0].URL != srv.URL+"/ida" {
		t.Errorf("links = %+v", summary.Links)
	}
	if got := readFile(t, cfg.FilePath(config.URLInOutLinks)); !strings.HasPrefix(got, "Url: "+srv.URL+"/ida, Outlink: ") {
		t.Errorf("url links file = %q", got)
	}
}

func TestCollectStats_MissingCorpus(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(cfg.FilePath(config.FinalCorpus)); err != nil {
		t.Fatal(err)
	}
	if _, err := newApp(cfg).CollectStats(context.Background(), app.StatsOptions{}); err == nil {
		t.Error("CollectStats() error = nil for a missing corpus")
	}
}

func TestGenerateEvalSamples(t *testing.T) {
	cfg := testConfig(t)
	cfg.Params.TotalSamples = 2
	cfg.Params.TotalTextPages = 2
	writeFile(t, cfg.FilePath(config.FinalCorpus), "A\nhttps://a.tl/1\nida\n\nB\nhttps://a.tl/2\nrua\n\nC\nhttps://a.tl/3\ntolu\n\n")

	paths, err := newApp(cfg).GenerateEvalSamples(context.Background())
	if err != nil {
		t.Fatalf("GenerateEvalSamples() error = %v", err)
	}
	want := []string{filepath.Join(cfg.Paths.EvalSample, "sample_1.txt"), filepath.Join(cfg.Paths.EvalSample, "sample_2.txt")}
	if !slices.Equal(paths, want) {
		t.Errorf("paths = %q, want %q", paths, want)
	}
}

const previewPage = `<!DOCTYPE html>
<html><head><title>Notísia
  Timor</title></head>
<body><article>
<p>Ita boot diak.</p>
<p>English summary of the news.</p>
<p>Hau hakarak bee.</p>
</article></body></html>`

func TestPreview(t *testing.T) {
	cfg := testConfig(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, previewPage)
	}))
	t.Cleanup(srv.Close)
	a := newApp(cfg, app.WithHTTPClient(srv.Client()))

	preview, err := a.Preview(context.Background(), srv.URL, app.PreviewOptions{Selector: "article p"})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if preview.Title != "Notísia Timor" || !preview.TitleAccepted {
		t.Errorf("title = %q accepted=%v", preview.Title, preview.TitleAccepted)
	}
	if len(preview.Lines) == 0 || preview.Lines[0] != "Ita boot diak." || preview.Lines[len(preview.Lines)-1] != "Hau hakarak bee." {
		t.Errorf("lines = %q", preview.Lines)
	}
	streak := 0
	for _, line := range preview.Lines {
		if strings.Contains(line, "English") {
			t.Errorf("gated line kept: %q", line)
		}
		if line == "" {
			streak++
		} else {
			streak = 0
		}
		if streak >= cfg.Params.MaxConsecutiveNewline {
			t.Errorf("blank cap exceeded in %q", preview.Lines)
		}
	}
	if !strings.HasPrefix(preview.Record(), "Notísia Timor\n"+srv.URL+"\nIta boot diak.\n") || !strings.HasSuffix(preview.Record(), "bee.\n\n") {
		t.Errorf("Record() = %q", preview.Record())
	}

	// previews never touch the corpus
	if got := readFile(t, cfg.FilePath(config.FinalCorpus)); got != "" {
		t.Errorf("final corpus = %q", got)
	}
}

func TestPreview_MissingModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, previewPage)
	}))
	t.Cleanup(srv.Close)
	a := app.New(testConfig(t), app.WithHTTPClient(srv.Client()), app.WithQuiet(true))

	preview, err := a.Preview(context.Background(), srv.URL, app.PreviewOptions{Selector: "article p"})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if !errors.Is(preview.GateErr, classify.ErrClassifierUnavailable) {
		t.Errorf("GateErr = %v, want ErrClassifierUnavailable", preview.GateErr)
	}
	if preview.TitleAccepted || slices.ContainsFunc(preview.Lines, func(l string) bool { return l != "" }) {
		t.Errorf("preview kept text without a model: %+v", preview)
	}
}

func TestPreview_MissingSource(t *testing.T) {
	cfg := testConfig(t)
	if _, err := newApp(cfg).Preview(context.Background(), filepath.Join(t.TempDir(), "absent.html"), app.PreviewOptions{}); err == nil {
		t.Error("Preview() error = nil for a missing file")
	}
}

func TestPipeline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Params.CorpusSampleRatio = 1
	cfg.Params.NumSeedWordSample = 1
	writeFile(t, cfg.FilePath(config.MainCorpus), "lafaek\n")
	source := docSource{{Title: ptr("Ida"), URL: "https://a.tl/1", Content: ptr("ida")}}
	a := newApp(cfg, app.WithSource(source))

	// no search credentials: the seeder falls back to seed words only
	if err := a.Pipeline(context.Background(), app.PipelineOptions{SeederRuns: 2}); err != nil {
		t.Fatalf("Pipeline() error = %v", err)
	}
	if got := readFile(t, cfg.FilePath(config.SeedWords)); got != "lafaek\nlafaek\n" {
		t.Errorf("seed words = %q", got)
	}
	if got := readFile(t, cfg.FilePath(config.FinalCorpus)); got != "Ida\nhttps://a.tl/1\nida\n\n" {
		t.Errorf("final corpus = %q", got)
	}
	if got := readFile(t, cfg.FilePath(config.StatsInOutLinks)); !strings.Contains(got, "Domain: a.tl, total_docs: 1") {
		t.Errorf("stats = %q", got)
	}

	runs, err := a.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[runlog.Kind]int{}
	for _, r := range runs {
		kinds[r.Kind]++
	}
	// the failed url attempt records nothing, both word-only runs do
	if kinds[runlog.KindSeed] != 2 || kinds[runlog.KindCorpus] != 1 || kinds[runlog.KindStats] != 1 {
		t.Errorf("recorded kinds = %v", kinds)
	}

	var out strings.Builder
	if err := app.WriteRuns(&out, runs); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "ID") || strings.Count(out.String(), "\n") != len(runs)+1 {
		t.Errorf("WriteRuns() = %q", out.String())
	}
}
