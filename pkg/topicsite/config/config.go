package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/topicsite/internal/corpus"
	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

// Canonical corpus text encodings. Validate also accepts the aliases
// corpus.CanonicalEncoding knows.
const (
	EncodingLatin1 = corpus.Latin1
	EncodingUTF8   = corpus.UTF8
)

// MaxSitemapURLs is the sitemaps.org limit of entries per sitemap file.
const MaxSitemapURLs = 50000

// Config is the complete generator configuration. It is passed explicitly
// to the generator; nothing reads it from package state.
type Config struct {
	Site       Site       `yaml:"site"`
	Corpus     Corpus     `yaml:"corpus"`
	Vectorizer Vectorizer `yaml:"vectorizer"`
	Model      Model      `yaml:"model"`
	Pagination Pagination `yaml:"pagination"`
	Sitemap    Sitemap    `yaml:"sitemap"`
	Output     Output     `yaml:"output"`
	Pipeline   Pipeline   `yaml:"pipeline"`
}

// Site holds values consumed read-only by the renderer.
type Site struct {
	// Domain is the absolute site root, e.g. https://example.com
	Domain       string `yaml:"domain"`
	AnalyticsID  string `yaml:"analytics_id"`
	AdID         string `yaml:"ad_id"`
	AdSlot       string `yaml:"ad_slot"`
	ContactEmail string `yaml:"contact_email"`
}

// Corpus describes where records come from and how to read them.
type Corpus struct {
	Dir          string `yaml:"dir"`
	Pattern      string `yaml:"pattern"`
	Encoding     string `yaml:"encoding"`
	AuthorColumn int    `yaml:"author_column"`
	TextColumn   int    `yaml:"text_column"`
	HasHeader    bool   `yaml:"has_header"`
	// Limit caps the number of records used (0 = all)
	Limit int `yaml:"limit"`
}

// Vectorizer configures vocabulary filtering.
type Vectorizer struct {
	MaxDocFreqRatio float64 `yaml:"max_doc_freq_ratio"`
	MinDocFreqCount int     `yaml:"min_doc_freq_count"`
	// Stoplist is an optional YAML file ({terms: [...]}); empty uses the
	// built-in English list
	Stoplist       string   `yaml:"stoplist"`
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

// Model configures the topic model.
type Model struct {
	Topics     int   `yaml:"topics"`
	Seed       int64 `yaml:"seed"`
	Iterations int   `yaml:"iterations"`
	// Alpha and Beta default to 1/topics when zero
	Alpha    float64 `yaml:"alpha"`
	Beta     float64 `yaml:"beta"`
	Keywords int     `yaml:"keywords"`
}

// Pagination configures page sizes.
type Pagination struct {
	RecordsPerPage int `yaml:"records_per_page"`
	TopicsPerPage  int `yaml:"topics_per_page"`
	// TrimTrailingPage drops the empty trailing page produced when a list
	// length is an exact multiple of the page size
	TrimTrailingPage bool `yaml:"trim_trailing_page"`
}

// Sitemap configures sitemap chunking.
type Sitemap struct {
	MaxURLsPerFile int  `yaml:"max_urls_per_file"`
	Gzip           bool `yaml:"gzip"`
}

// Output configures where artifacts go.
type Output struct {
	Dir         string `yaml:"dir"`
	Manifest    string `yaml:"manifest"`
	MetricsFile string `yaml:"metrics_file"`
}

// Pipeline configures internal parallelism.
type Pipeline struct {
	// Workers bounds term counting and file writing (0 = NumCPU)
	Workers int `yaml:"workers"`
}

// Default returns a Config with the defaults of the original generator:
// latin-1 tweet dumps with a header row, author and text in columns 4 and
// 5, capped at 2000 records.
func Default() *Config {
	return &Config{
		Corpus: Corpus{
			Dir:          "data/split_files",
			Pattern:      "*.csv",
			Encoding:     EncodingLatin1,
			AuthorColumn: 4,
			TextColumn:   5,
			HasHeader:    true,
			Limit:        2000,
		},
		Vectorizer: Vectorizer{
			MaxDocFreqRatio: 0.95,
			MinDocFreqCount: 2,
		},
		Model: Model{
			Topics:     200,
			Seed:       42,
			Iterations: 100,
			Keywords:   10,
		},
		Pagination: Pagination{
			RecordsPerPage: 10,
			TopicsPerPage:  10,
		},
		Sitemap: Sitemap{
			MaxURLsPerFile: MaxSitemapURLs,
		},
		Output: Output{
			Dir: "web",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of Default().
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	fail := func(format string, args ...interface{}) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if c.Site.Domain == "" {
		fail("site.domain is required")
	} else if u, err := url.Parse(c.Site.Domain); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		fail("site.domain must be an absolute http(s) URL, got %q", c.Site.Domain)
	}

	if c.Corpus.Dir == "" {
		fail("corpus.dir is required")
	}
	if _, ok := corpus.CanonicalEncoding(c.Corpus.Encoding); !ok {
		fail("corpus.encoding must be %q or %q, got %q", EncodingLatin1, EncodingUTF8, c.Corpus.Encoding)
	}
	if c.Corpus.AuthorColumn < 0 || c.Corpus.TextColumn < 0 {
		fail("corpus columns must be non-negative")
	}
	if c.Corpus.Limit < 0 {
		fail("corpus.limit must be non-negative")
	}

	if c.Vectorizer.MaxDocFreqRatio <= 0 || c.Vectorizer.MaxDocFreqRatio > 1 {
		fail("vectorizer.max_doc_freq_ratio must be in (0, 1], got %v", c.Vectorizer.MaxDocFreqRatio)
	}
	if c.Vectorizer.MinDocFreqCount < 1 {
		fail("vectorizer.min_doc_freq_count must be at least 1")
	}

	if c.Model.Topics <= 0 {
		fail("model.topics must be positive")
	}
	if c.Model.Iterations <= 0 {
		fail("model.iterations must be positive")
	}
	if c.Model.Alpha < 0 || c.Model.Beta < 0 {
		fail("model.alpha and model.beta must be non-negative")
	}
	if c.Model.Keywords < 1 {
		fail("model.keywords must be at least 1")
	}

	if c.Pagination.RecordsPerPage < 1 {
		fail("pagination.records_per_page must be at least 1")
	}
	if c.Pagination.TopicsPerPage < 1 {
		fail("pagination.topics_per_page must be at least 1")
	}

	if c.Sitemap.MaxURLsPerFile < 1 || c.Sitemap.MaxURLsPerFile > MaxSitemapURLs {
		fail("sitemap.max_urls_per_file must be in [1, %d]", MaxSitemapURLs)
	}

	if c.Output.Dir == "" {
		fail("output.dir is required")
	}
	if c.Pipeline.Workers < 0 {
		fail("pipeline.workers must be non-negative")
	}

	if result == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, result)
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
