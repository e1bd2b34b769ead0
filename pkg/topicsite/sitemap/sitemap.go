// Package sitemap enumerates page URLs, splits them into bounded sitemap
// files and builds the sitemap index that references those files.
package sitemap

import (
	"fmt"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
	"github.com/cognicore/topicsite/pkg/topicsite/site"
)

// MaxURLs is the sitemaps.org limit of entries per file.
const MaxURLs = 50000

// Chunk is one sitemap file. Index starts at 1.
type Chunk struct {
	Index int
	// Path is the chunk's output path, relative to the site root
	Path string
	// Location is the absolute URL of the chunk file
	Location string
	URLs     []string
}

// Enumerate lists every page URL of the site in a fixed order: topic index
// pages, about, contact, then each topic's content pages by topic id and
// page number. topicPages[id] is the page count of topic id.
func Enumerate(layout site.Layout, indexPages int, topicPages []int) []string {
	total := indexPages + 2
	for _, n := range topicPages {
		total += n
	}

	urls := make([]string, 0, total)
	for n := 1; n <= indexPages; n++ {
		urls = append(urls, layout.URL(layout.IndexPage(n)))
	}
	urls = append(urls, layout.URL(site.AboutPath), layout.URL(site.ContactPath))
	for topic, pages := range topicPages {
		for n := 1; n <= pages; n++ {
			urls = append(urls, layout.URL(layout.ContentPage(topic, n)))
		}
	}
	return urls
}

// Split cuts urls into consecutive chunks of at most max entries,
// preserving order. Zero URLs yield zero chunks.
func Split(layout site.Layout, urls []string, max int) ([]Chunk, error) {
	if max < 1 {
		return nil, fmt.Errorf("sitemap: max urls per file %d: %w", max, internalerr.ErrInvalidInput)
	}

	chunks := make([]Chunk, 0, (len(urls)+max-1)/max)
	for start := 0; start < len(urls); start += max {
		end := start + max
		if end > len(urls) {
			end = len(urls)
		}
		i := len(chunks) + 1
		path := layout.SitemapChunk(i)
		chunks = append(chunks, Chunk{
			Index:    i,
			Path:     path,
			Location: layout.URL(path),
			URLs:     urls[start:end:end],
		})
	}
	return chunks, nil
}

// Assembler holds the chunks of one run and answers which chunk covers a
// given URL.
type Assembler struct {
	layout site.Layout
	chunks []Chunk
	owner  map[string]int
}

// NewAssembler splits urls into chunks of at most max entries.
func NewAssembler(layout site.Layout, urls []string, max int) (*Assembler, error) {
	chunks, err := Split(layout, urls, max)
	if err != nil {
		return nil, err
	}
	owner := make(map[string]int, len(urls))
	for i, c := range chunks {
		for _, u := range c.URLs {
			if _, dup := owner[u]; dup {
				return nil, fmt.Errorf("sitemap: url %s listed twice: %w", u, internalerr.ErrInvalidInput)
			}
			owner[u] = i
		}
	}
	return &Assembler{layout: layout, chunks: chunks, owner: owner}, nil
}

// Chunks returns the chunks in order.
func (a *Assembler) Chunks() []Chunk { return a.chunks }

// Locate returns the chunk listing url.
func (a *Assembler) Locate(url string) (Chunk, bool) {
	i, ok := a.owner[url]
	if !ok {
		return Chunk{}, false
	}
	return a.chunks[i], true
}

// Index returns the sitemap index referencing every chunk.
func (a *Assembler) Index() Index {
	return BuildIndex(a.layout, a.chunks)
}
