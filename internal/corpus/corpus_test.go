package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func twoColumn() LoadOptions {
	return LoadOptions{Pattern: "*.csv", Encoding: "utf-8", AuthorColumn: 0, TextColumn: 1}
}

func TestLoadPreservesFileThenRowOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", []byte("carol,third\ndave,fourth\n"))
	writeFile(t, dir, "a.csv", []byte("alice,first\nbob,second\n"))
	writeFile(t, dir, "notes.txt", []byte("eve,ignored\n"))

	records, err := Load(context.Background(), dir, twoColumn())
	require.NoError(t, err)

	assert.Equal(t, []Record{
		{Author: "alice", Text: "first"},
		{Author: "bob", Text: "second"},
		{Author: "carol", Text: "third"},
		{Author: "dave", Text: "fourth"},
	}, records)
}

func TestLoadDefaultColumnsLikeTweetDumps(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tweets.csv", []byte(
		"0,1467810369,Mon Apr 06,NO_QUERY,switchfoot,\"is upset, can't update\"\n"))

	records, err := Load(context.Background(), dir, LoadOptions{AuthorColumn: 4, TextColumn: 5})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "switchfoot", records[0].Author)
	assert.Equal(t, "is upset, can't update", records[0].Text)
}

func TestLoadDecodesLatin1(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", []byte{'j', 'o', ',', 'c', 'a', 'f', 0xE9, '\n'})

	opts := twoColumn()
	opts.Encoding = "latin-1"
	records, err := Load(context.Background(), dir, opts)
	require.NoError(t, err)

	assert.Equal(t, "café", records[0].Text)
}

func TestLoadStripsUTF8BOMAndHeader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", append([]byte("\xEF\xBB\xBF"), []byte("author,text\nann,hello there\n")...))

	opts := twoColumn()
	opts.HasHeader = true
	records, err := Load(context.Background(), dir, opts)
	require.NoError(t, err)

	assert.Equal(t, []Record{{Author: "ann", Text: "hello there"}}, records)
}

func TestLoadSkipsShortAndBlankRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", []byte("ann\nbob,   \ncat,kept\n"))

	records, err := Load(context.Background(), dir, twoColumn())
	require.NoError(t, err)

	assert.Equal(t, []Record{{Author: "cat", Text: "kept"}}, records)
}

func TestLoadLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", []byte("a,1 one\nb,2 two\n"))
	writeFile(t, dir, "b.csv", []byte("c,3 three\nd,4 four\n"))

	opts := twoColumn()
	opts.Limit = 3
	records, err := Load(context.Background(), dir, opts)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "c", records[2].Author)
}

func TestLoadRecursivePattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2024/jan/a.csv", []byte("a,nested text\n"))

	opts := twoColumn()
	opts.Pattern = "**/*.csv"
	records, err := Load(context.Background(), dir, opts)
	require.NoError(t, err)

	assert.Len(t, records, 1)
}

func TestLoadDirectoryWithGlobCharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump[2009]")
	writeFile(t, dir, "a.csv", []byte("alice,first\nbob,second\n"))
	writeFile(t, dir, "sub/b.csv", []byte("carol,third\n"))

	records, err := Load(context.Background(), dir, twoColumn())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	opts := twoColumn()
	opts.Pattern = "**/*.csv"
	files, err := Files(dir, opts.Pattern)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "sub", "b.csv"),
	}, files)
}

func TestLoadEmptyCorpus(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.csv", nil)

	_, err := Load(context.Background(), dir, twoColumn())
	assert.ErrorIs(t, err, internalerr.ErrCorpusEmpty)

	_, err = Load(context.Background(), t.TempDir(), twoColumn())
	assert.ErrorIs(t, err, internalerr.ErrCorpusEmpty)
}

func TestLoadUnsupportedEncoding(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", []byte("a,b\n"))

	opts := twoColumn()
	opts.Encoding = "ebcdic"
	_, err := Load(context.Background(), dir, opts)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestLoadCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", []byte("a,b\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, dir, twoColumn())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStripMarkup(t *testing.T) {
	cases := map[string]string{
		"plain   text\n here":             "plain text here",
		"fish &amp; chips":                "fish & chips",
		"<b>bold</b> move<br/>next line":  "bold move next line",
		"a &lt; b":                        "a < b",
		"":                                "",
		`<a href="https://x.io">link</a>`: "link",
		"&lt;b&gt;escaped&lt;/b&gt;":      "<b>escaped</b>",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripMarkup(in), "input %q", in)
	}
}

func TestStripMarkupKeepsBareAngleBrackets(t *testing.T) {
	cases := []string{
		"hello <world and more text",
		"x<y and y>z",
		"i <3 this > that",
		"use <tokenizer> here",
		"a -> b <- c",
	}
	for _, in := range cases {
		assert.Equal(t, in, StripMarkup(in))
	}
}

func TestLoadKeepsTextAroundAngleBrackets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", []byte("alice,prices <10 and >5 today\n"))

	records, err := Load(context.Background(), dir, twoColumn())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "prices <10 and >5 today", records[0].Text)
}

func TestCanonicalEncoding(t *testing.T) {
	for _, name := range []string{"", "latin-1", "Latin1", "ISO-8859-1"} {
		enc, ok := CanonicalEncoding(name)
		assert.True(t, ok, name)
		assert.Equal(t, Latin1, enc, name)
	}
	for _, name := range []string{"utf-8", "UTF8"} {
		enc, ok := CanonicalEncoding(name)
		assert.True(t, ok, name)
		assert.Equal(t, UTF8, enc, name)
	}
	_, ok := CanonicalEncoding("utf-16")
	assert.False(t, ok)
}
