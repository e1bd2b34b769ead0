package topicsite

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/topicsite/pkg/topicsite/config"
	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
	"github.com/cognicore/topicsite/pkg/topicsite/render"
	"github.com/cognicore/topicsite/pkg/topicsite/store/memstore"
)

const domain = "https://topics.example.com"

// writeCorpus splits ten energy and ten cooking posts over two files.
func writeCorpus(t *testing.T, dir string) {
	t.Helper()
	energy := []string{
		"grid wind turbine battery",
		"grid wind grid turbine",
		"wind battery battery grid",
		"turbine turbine wind grid",
		"battery grid wind wind",
	}
	cooking := []string{
		"pasta tomato basil garlic",
		"pasta basil pasta tomato",
		"garlic garlic basil pasta",
		"tomato tomato garlic pasta",
		"basil pasta garlic basil",
	}
	var a, b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&a, "user%d,%s\n", i, energy[i%len(energy)])
		fmt.Fprintf(&b, "cook%d,\"%s\"\n", i, cooking[i%len(cooking)])
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(a.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte(b.String()), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	corpusDir := t.TempDir()
	writeCorpus(t, corpusDir)

	cfg := config.Default()
	cfg.Site = config.Site{
		Domain:       domain,
		AnalyticsID:  "G-TEST",
		AdID:         "ca-pub-1",
		ContactEmail: "team@example.com",
	}
	cfg.Corpus.Dir = corpusDir
	cfg.Corpus.Encoding = config.EncodingUTF8
	cfg.Corpus.AuthorColumn = 0
	cfg.Corpus.TextColumn = 1
	cfg.Corpus.HasHeader = false
	cfg.Corpus.Limit = 0
	cfg.Model.Topics = 2
	cfg.Model.Iterations = 50
	cfg.Model.Keywords = 3
	cfg.Pagination.RecordsPerPage = 3
	cfg.Pagination.TopicsPerPage = 1
	cfg.Sitemap.MaxURLsPerFile = 4
	cfg.Output.Dir = t.TempDir()
	cfg.Pipeline.Workers = 2
	return cfg
}

func run(t *testing.T, cfg *config.Config, opts Options) *Result {
	t.Helper()
	g, err := New(context.Background(), cfg, opts)
	require.NoError(t, err)
	defer g.Close()
	res, err := g.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestRunWritesEveryEnumeratedPage(t *testing.T) {
	cfg := testConfig(t)
	res := run(t, cfg, Options{})

	assert.Equal(t, 20, res.Records)
	require.Len(t, res.Topics, 2)

	total := 0
	for _, topic := range res.Topics {
		total += topic.Size
		assert.Equal(t, topic.Size/3+1, topic.Pages)
		assert.Len(t, topic.Keywords, 3)
	}
	assert.Equal(t, 20, total, "every record lands in exactly one topic")

	for _, u := range res.URLs {
		require.True(t, strings.HasPrefix(u, domain+"/"))
		rel := strings.TrimPrefix(u, domain+"/")
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, filepath.FromSlash(rel)))
	}

	// two topics at one per index page leave a trailing empty index page
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "index_page3.html"))
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "static", "js", "adsense.js"))
	assert.Equal(t, 3+2+res.Topics[0].Pages+res.Topics[1].Pages, len(res.URLs))
}

func TestRunSitemapIndexMatchesChunks(t *testing.T) {
	cfg := testConfig(t)
	res := run(t, cfg, Options{})

	wantChunks := (len(res.URLs) + 3) / 4
	assert.Equal(t, wantChunks, res.SitemapChunks)

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "sitemap.xml"))
	require.NoError(t, err)
	var index struct {
		Locs []string `xml:"sitemap>loc"`
	}
	require.NoError(t, xml.Unmarshal(data, &index))
	require.Len(t, index.Locs, wantChunks)

	var listed []string
	for i, loc := range index.Locs {
		assert.Equal(t, fmt.Sprintf("%s/sitemap_%d.xml", domain, i+1), loc)
		chunk, err := os.ReadFile(filepath.Join(cfg.Output.Dir, fmt.Sprintf("sitemap_%d.xml", i+1)))
		require.NoError(t, err)
		var set struct {
			Locs []string `xml:"url>loc"`
		}
		require.NoError(t, xml.Unmarshal(chunk, &set))
		assert.LessOrEqual(t, len(set.Locs), 4)
		listed = append(listed, set.Locs...)
	}
	assert.Equal(t, res.URLs, listed)
}

func TestRunContentPagesReferenceTheirSitemap(t *testing.T) {
	cfg := testConfig(t)
	res := run(t, cfg, Options{})

	for i, u := range res.URLs {
		if !strings.Contains(u, "/content/") {
			continue
		}
		rel := strings.TrimPrefix(u, domain+"/")
		page, err := os.ReadFile(filepath.Join(cfg.Output.Dir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		want := fmt.Sprintf("%s/sitemap_%d.xml", domain, i/4+1)
		assert.Contains(t, string(page), want, "page %s", rel)
		assert.Contains(t, string(page), `href="../about.html"`)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	first := run(t, testConfig(t), Options{})
	second := run(t, testConfig(t), Options{})

	require.Len(t, second.Topics, len(first.Topics))
	for i := range first.Topics {
		assert.Equal(t, first.Topics[i].Keywords, second.Topics[i].Keywords)
		assert.Equal(t, first.Topics[i].Size, second.Topics[i].Size)
	}
	assert.Equal(t, first.URLs, second.URLs)
}

func TestRunRecordsManifestAndMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.MetricsFile = filepath.Join(t.TempDir(), "topicsite.prom")
	st := memstore.New()

	res := run(t, cfg, Options{Store: st})

	latest, ok, err := st.LatestRun(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.RunID, latest.ID)
	assert.Equal(t, 20, latest.Records)
	assert.Len(t, latest.Assignments, 20)
	require.Len(t, latest.Topics, 2)
	assert.Equal(t, res.Topics[0].Title, latest.Topics[0].Title)
	for _, a := range latest.Assignments {
		assert.Greater(t, a.Probability, 0.0)
	}

	metrics, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "topicsite_records 20")
	assert.Contains(t, string(metrics), "topicsite_topics 2")
}

func TestRunSQLiteManifest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Manifest = filepath.Join(t.TempDir(), "manifest.db")

	run(t, cfg, Options{})
	assert.FileExists(t, cfg.Output.Manifest)
}

func TestRunGzipSitemaps(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sitemap.Gzip = true
	res := run(t, cfg, Options{})

	for i := 1; i <= res.SitemapChunks; i++ {
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, fmt.Sprintf("sitemap_%d.xml.gz", i)))
	}
	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "sitemap.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), domain+"/sitemap_1.xml.gz")
}

func TestRunTrimPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pagination.TrimTrailingPage = true
	res := run(t, cfg, Options{})

	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "index_page3.html"))
	for _, topic := range res.Topics {
		assert.Equal(t, (topic.Size+2)/3, topic.Pages)
	}
}

func outputFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if !d.IsDir() {
			rel, err := filepath.Rel(root, p)
			require.NoError(t, err)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	}))
	return files
}

func TestRerunRemovesStalePages(t *testing.T) {
	cfg := testConfig(t)
	first := run(t, cfg, Options{})

	// half the corpus disappears between runs
	require.NoError(t, os.Remove(filepath.Join(cfg.Corpus.Dir, "b.csv")))
	second := run(t, cfg, Options{})
	require.Equal(t, 10, second.Records)
	require.Less(t, len(second.URLs), len(first.URLs))

	want := []string{"sitemap.xml", "static/js/adsense.js"}
	for _, u := range second.URLs {
		want = append(want, strings.TrimPrefix(u, domain+"/"))
	}
	for i := 1; i <= second.SitemapChunks; i++ {
		want = append(want, fmt.Sprintf("sitemap_%d.xml", i))
	}
	assert.ElementsMatch(t, want, outputFiles(t, cfg.Output.Dir))
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty corpus", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Corpus.Dir = t.TempDir()
		g, err := New(ctx, cfg, Options{})
		require.NoError(t, err)
		_, err = g.Run(ctx)
		assert.ErrorIs(t, err, internalerr.ErrCorpusEmpty)
	})

	t.Run("vocabulary filtered away", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Vectorizer.MinDocFreqCount = 100
		g, err := New(ctx, cfg, Options{})
		require.NoError(t, err)
		_, err = g.Run(ctx)
		assert.ErrorIs(t, err, internalerr.ErrEmptyVocabulary)
	})

	t.Run("too many topics", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Model.Topics = 50
		g, err := New(ctx, cfg, Options{})
		require.NoError(t, err)
		_, err = g.Run(ctx)
		assert.ErrorIs(t, err, internalerr.ErrModelFit)
	})

	t.Run("renderer failure", func(t *testing.T) {
		cfg := testConfig(t)
		g, err := New(ctx, cfg, Options{Renderer: failingRenderer{}})
		require.NoError(t, err)
		_, err = g.Run(ctx)
		assert.ErrorIs(t, err, internalerr.ErrRender)

		entries, err := os.ReadDir(cfg.Output.Dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "nothing is written when rendering fails")
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Site.Domain = ""
		_, err := New(ctx, cfg, Options{})
		assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
	})

	t.Run("canceled", func(t *testing.T) {
		cfg := testConfig(t)
		g, err := New(ctx, cfg, Options{})
		require.NoError(t, err)
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = g.Run(canceled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type failingRenderer struct{}

func (failingRenderer) Index(render.IndexPage) ([]byte, error) {
	return nil, errors.New("boom")
}

func (failingRenderer) Content(render.ContentPage) ([]byte, error) {
	return nil, errors.New("boom")
}

func (failingRenderer) Info(render.InfoPage) ([]byte, error) {
	return nil, errors.New("boom")
}
