// Package config loads the pipeline configuration.
//
// Values are resolved in order: built-in defaults, the YAML config file, a .env file,
// then LABADAIN_* environment variables. The result is validated once and passed by
// value to every component.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the config file.
const (
	EnvSolrURL        = "LABADAIN_SOLR_URL"
	EnvSearchAPIKey   = "LABADAIN_SEARCH_API_KEY"
	EnvSearchEngineID = "LABADAIN_SEARCH_ENGINE_ID"
	EnvDataDir        = "LABADAIN_DATA_DIR"
)

// Paths are the pipeline directories.
type Paths struct {
	Data       string `yaml:"data" validate:"required"`
	Seeds      string `yaml:"seeds" validate:"required"` // read by the crawler
	LID        string `yaml:"lid" validate:"required"`
	EvalSample string `yaml:"eval_sample" validate:"required"`
}

// Files are file names relative to their directory in Paths.
type Files struct {
	MainCorpus      string `yaml:"main_corpus" validate:"required"`
	SeedWords       string `yaml:"seed_words" validate:"required"`
	SeedURLs        string `yaml:"seed_urls" validate:"required"`
	Domains         string `yaml:"domains" validate:"required"`
	LIDModel        string `yaml:"lid_model" validate:"required"`
	FinalCorpus     string `yaml:"final_corpus" validate:"required"`
	StatsInOutLinks string `yaml:"stats_in_out_links" validate:"required"`
	URLInOutLinks   string `yaml:"url_in_out_links" validate:"required"`
	RunHistory      string `yaml:"run_history" validate:"required"`
}

// Params tune the pipeline steps.
type Params struct {
	SolrURL               string        `yaml:"solr_api_url" validate:"required,url"`
	SolrStart             int           `yaml:"solr_start" validate:"gte=0"`
	SolrRows              int           `yaml:"solr_rows" validate:"gte=1"`
	IndexRateLimit        float64       `yaml:"index_rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
	HTTPTimeout           time.Duration `yaml:"http_timeout" validate:"gt=0"`
	Language              string        `yaml:"language" validate:"required"`
	LangProbaThreshold    float64       `yaml:"lang_proba_threshold" validate:"gte=0,lte=1"`
	MaxConsecutiveNewline int           `yaml:"max_consecutive_newline" validate:"gte=1"`
	CorpusSampleRatio     float64       `yaml:"corpus_sample_ratio" validate:"gt=0,lte=1"`
	NumSeedWordSample     int           `yaml:"num_seed_word_sample" validate:"gte=1"`
	Tokenizer             string        `yaml:"tokenizer" validate:"oneof=word prose"`
	RandomSeed            uint64        `yaml:"random_seed"` // 0 = seeded from the runtime
	GoogleSearchNumResult int           `yaml:"google_search_num_result" validate:"gte=1,lte=100"`
	MaxSeedURLLength      int           `yaml:"max_seed_url_length" validate:"gte=1"`
	ExtensionsToExclude   []string      `yaml:"extensions_to_exclude"`
	DomainsToExclude      []string      `yaml:"domains_to_exclude"`
	TotalSamples          int           `yaml:"total_samples" validate:"gte=1"`
	TotalTextPages        int           `yaml:"total_text_pages" validate:"gte=1"`
	StatsConcurrency      int           `yaml:"stats_concurrency" validate:"gte=1"`
	StatsRateLimit        float64       `yaml:"stats_rate_limit" validate:"gte=0"`
}

// Search holds the Programmable Search Engine credentials used for seed urls.
type Search struct {
	APIKey   string `yaml:"api_key"`
	EngineID string `yaml:"engine_id"`
}

// Config is the complete pipeline configuration.
type Config struct {
	Paths  Paths  `yaml:"paths"`
	Files  Files  `yaml:"files"`
	Params Params `yaml:"params"`
	Search Search `yaml:"search"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Paths: Paths{
			Data:       "data",
			Seeds:      "nutch/urls",
			LID:        "lid",
			EvalSample: "eval_sample",
		},
		Files: Files{
			MainCorpus:      "initial_corpus.txt",
			SeedWords:       "seed_words.txt",
			SeedURLs:        "seed.txt",
			Domains:         "domains.txt",
			LIDModel:        "tetun_lid_model.json",
			FinalCorpus:     "final_corpus.txt",
			StatsInOutLinks: "stat_inlinks_outlinks.txt",
			URLInOutLinks:   "url_inlinks_outlinks.txt",
			RunHistory:      "runs.db",
		},
		Params: Params{
			SolrURL:               "http://localhost:8983/solr/nutch/select",
			SolrStart:             0,
			SolrRows:              10,
			HTTPTimeout:           30 * time.Second,
			Language:              "tet",
			LangProbaThreshold:    0.95,
			MaxConsecutiveNewline: 2,
			CorpusSampleRatio:     0.1,
			NumSeedWordSample:     3,
			Tokenizer:             "word",
			GoogleSearchNumResult: 100,
			MaxSeedURLLength:      300,
			ExtensionsToExclude: []string{
				`\.pdf$`, `\.docx?$`, `\.xlsx?$`, `\.pptx?$`, `\.jpe?g$`, `\.png$`, `\.gif$`, `\.mp[34]$`, `\.zip$`,
			},
			DomainsToExclude: []string{
				"youtube.com", "facebook.com", "twitter.com", "instagram.com", "linkedin.com", "tiktok.com",
			},
			TotalSamples:     10,
			TotalTextPages:   100,
			StatsConcurrency: 4,
			StatsRateLimit:   2,
		},
	}
}

// Load reads the YAML file at path over the defaults (an empty path keeps the
// defaults), applies .env and environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSolrURL); v != "" {
		c.Params.SolrURL = v
	}
	if v := os.Getenv(EnvSearchAPIKey); v != "" {
		c.Search.APIKey = v
	}
	if v := os.Getenv(EnvSearchEngineID); v != "" {
		c.Search.EngineID = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Paths.Data = v
	}
}

// Validate checks every field constraint and reports all failures at once.
func (c Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// drop the root struct name
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		problems = append(problems, fmt.Sprintf("%s must satisfy %s (got %v)", field, rule, fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// HasSearchCredentials reports whether seed url search can run.
func (c Config) HasSearchCredentials() bool {
	return c.Search.APIKey != "" && c.Search.EngineID != ""
}

// File identifies one of the pipeline files.
type File int

const (
	MainCorpus File = iota
	SeedWords
	SeedURLs
	Domains
	LIDModel
	FinalCorpus
	StatsInOutLinks
	URLInOutLinks
	RunHistory
)

// String returns the YAML name of the file.
func (f File) String() string {
	switch f {
	case MainCorpus:
		return "main_corpus"
	case SeedWords:
		return "seed_words"
	case SeedURLs:
		return "seed_urls"
	case Domains:
		return "domains"
	case LIDModel:
		return "lid_model"
	case FinalCorpus:
		return "final_corpus"
	case StatsInOutLinks:
		return "stats_in_out_links"
	case URLInOutLinks:
		return "url_in_out_links"
	case RunHistory:
		return "run_history"
	default:
		return "file(" + strconv.Itoa(int(f)) + ")"
	}
}

// FilePath joins a file name with its directory.
func (c Config) FilePath(f File) string {
	switch f {
	case MainCorpus:
		return filepath.Join(c.Paths.Data, c.Files.MainCorpus)
	case SeedWords:
		return filepath.Join(c.Paths.Data, c.Files.SeedWords)
	case SeedURLs:
		return filepath.Join(c.Paths.Seeds, c.Files.SeedURLs)
	case Domains:
		return filepath.Join(c.Paths.Data, c.Files.Domains)
	case LIDModel:
		return filepath.Join(c.Paths.LID, c.Files.LIDModel)
	case FinalCorpus:
		return filepath.Join(c.Paths.Data, c.Files.FinalCorpus)
	case StatsInOutLinks:
		return filepath.Join(c.Paths.Data, c.Files.StatsInOutLinks)
	case URLInOutLinks:
		return filepath.Join(c.Paths.Data, c.Files.URLInOutLinks)
	case RunHistory:
		return filepath.Join(c.Paths.Data, c.Files.RunHistory)
	default:
		return ""
	}
}

// EnsureFiles creates the pipeline directories and any missing data file, so every
// step finds its inputs even on a fresh checkout.
func (c Config) EnsureFiles() error {
	for _, dir := range []string{c.Paths.Data, c.Paths.Seeds, c.Paths.LID, c.Paths.EvalSample} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %q: %w", dir, err)
		}
	}
	for _, f := range []File{MainCorpus, SeedWords, SeedURLs, Domains, FinalCorpus, StatsInOutLinks, URLInOutLinks} {
		path := c.FilePath(f)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create %s file: %w", f, err)
		}
		file.Close()
	}
	return nil
}
