package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/cognicore/topicsite/pkg/topicsite/site"
)

// Namespace is the sitemaps.org schema namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Index is the sitemap-of-sitemaps document.
type Index struct {
	Path     string
	Location string
	// Sitemaps holds one chunk location per chunk, in chunk order
	Sitemaps []string
}

// BuildIndex returns the index referencing each chunk's location.
func BuildIndex(layout site.Layout, chunks []Chunk) Index {
	locs := make([]string, len(chunks))
	for i, c := range chunks {
		locs[i] = c.Location
	}
	return Index{
		Path:     site.SitemapIndexPath,
		Location: layout.URL(site.SitemapIndexPath),
		Sitemaps: locs,
	}
}

type loc struct {
	Loc string `xml:"loc"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []loc    `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Xmlns    string   `xml:"xmlns,attr"`
	Sitemaps []loc    `xml:"sitemap"`
}

// EncodeURLSet renders a chunk as a <urlset> document.
func EncodeURLSet(c Chunk) ([]byte, error) {
	doc := urlSet{Xmlns: Namespace, URLs: locs(c.URLs)}
	return encode(doc, fmt.Sprintf("chunk %d", c.Index))
}

// EncodeIndex renders the index as a <sitemapindex> document.
func EncodeIndex(idx Index) ([]byte, error) {
	doc := sitemapIndex{Xmlns: Namespace, Sitemaps: locs(idx.Sitemaps)}
	return encode(doc, "index")
}

func locs(urls []string) []loc {
	out := make([]loc, len(urls))
	for i, u := range urls {
		out[i] = loc{Loc: u}
	}
	return out
}

func encode(doc interface{}, what string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("sitemap: encode %s: %w", what, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
