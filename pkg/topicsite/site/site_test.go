package site

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("https://example.com/", false)

	assert.Equal(t, "https://example.com", l.Domain())
	assert.Equal(t, "index.html", l.IndexPage(1))
	assert.Equal(t, "index_page2.html", l.IndexPage(2))
	assert.Equal(t, "content/topic_7_page3.html", l.ContentPage(7, 3))
	assert.Equal(t, "sitemap_1.xml", l.SitemapChunk(1))
	assert.Equal(t, "https://example.com/content/topic_0_page1.html", l.URL(l.ContentPage(0, 1)))
	assert.Equal(t, "https://example.com/about.html", l.URL("/"+AboutPath))

	gz := NewLayout("https://example.com", true)
	assert.Equal(t, "sitemap_2.xml.gz", gz.SitemapChunk(2))
}

func TestRelativeRoot(t *testing.T) {
	assert.Equal(t, "./", RelativeRoot("index.html"))
	assert.Equal(t, "../", RelativeRoot("content/topic_1_page1.html"))
	assert.Equal(t, "../../", RelativeRoot(AdScriptPath))
}

func TestWriterCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, 2)

	stats, err := w.Write(context.Background(), []Artifact{
		{Path: "index.html", Data: []byte("<html>index</html>")},
		{Path: "content/topic_0_page1.html", Data: []byte("topic")},
		{Path: "static/js/adsense.js", Data: []byte("js")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)
	assert.EqualValues(t, len("<html>index</html>")+len("topic")+len("js"), stats.Bytes)

	got, err := os.ReadFile(filepath.Join(root, "content", "topic_0_page1.html"))
	require.NoError(t, err)
	assert.Equal(t, "topic", string(got))
}

func TestWriterGzip(t *testing.T) {
	root := t.TempDir()
	payload := bytes.Repeat([]byte("<url><loc>https://example.com/</loc></url>"), 100)

	_, err := NewWriter(root, 1).Write(context.Background(), []Artifact{
		{Path: "sitemap_1.xml.gz", Data: payload, Gzip: true},
	})
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(root, "sitemap_1.xml.gz"))
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestWriterRejectsDuplicatePaths(t *testing.T) {
	root := t.TempDir()
	_, err := NewWriter(root, 1).Write(context.Background(), []Artifact{
		{Path: "a.html"}, {Path: "a.html"},
	})
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written when validation fails")
}

func TestWriterUnwritableRoot(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewWriter(blocker, 1).Write(context.Background(), []Artifact{
		{Path: "content/x.html", Data: []byte("x")},
	})
	assert.ErrorIs(t, err, internalerr.ErrWrite)
}

func TestWriterRemovesStaleManagedFiles(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, 2)
	w.Managed = Managed

	first := []Artifact{
		{Path: "index.html", Data: []byte("1")},
		{Path: "index_page2.html", Data: []byte("1")},
		{Path: "content/topic_0_page1.html", Data: []byte("1")},
		{Path: "content/topic_0_page2.html", Data: []byte("1")},
		{Path: "content/topic_1_page1.html", Data: []byte("1")},
		{Path: "sitemap.xml", Data: []byte("1")},
		{Path: "sitemap_1.xml", Data: []byte("1")},
		{Path: "sitemap_2.xml", Data: []byte("1")},
	}
	stats, err := w.Write(context.Background(), first)
	require.NoError(t, err)
	assert.Zero(t, stats.Removed)

	// files the writer does not own survive
	require.NoError(t, os.WriteFile(filepath.Join(root, "robots.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "content", "notes.txt"), []byte("x"), 0o644))

	second := []Artifact{
		{Path: "index.html", Data: []byte("2")},
		{Path: "content/topic_0_page1.html", Data: []byte("2")},
		{Path: "sitemap.xml", Data: []byte("2")},
		{Path: "sitemap_1.xml.gz", Data: []byte("2"), Gzip: true},
	}
	stats, err = w.Write(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Removed)

	var files []string
	require.NoError(t, filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	}))
	assert.ElementsMatch(t, []string{
		"index.html",
		"content/topic_0_page1.html",
		"content/notes.txt",
		"robots.txt",
		"sitemap.xml",
		"sitemap_1.xml.gz",
	}, files)
}

func TestWriterWithoutManagedKeepsEverything(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, 1)

	_, err := w.Write(context.Background(), []Artifact{{Path: "index_page2.html", Data: []byte("1")}})
	require.NoError(t, err)
	stats, err := w.Write(context.Background(), []Artifact{{Path: "index.html", Data: []byte("2")}})
	require.NoError(t, err)

	assert.Zero(t, stats.Removed)
	assert.FileExists(t, filepath.Join(root, "index_page2.html"))
}
