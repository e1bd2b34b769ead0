// Package site maps pages to output paths and writes generated artifacts.
package site

import (
	"fmt"
	"path"
	"strings"
)

// Fixed output paths, relative to the output directory.
const (
	IndexPath        = "index.html"
	AboutPath        = "about.html"
	ContactPath      = "contact.html"
	SitemapIndexPath = "sitemap.xml"
	AdScriptPath     = "static/js/adsense.js"
	ContentDir       = "content"
)

// Managed lists doublestar patterns covering every path a Layout can
// produce. A file matching one that the current run did not write is left
// over from an earlier run.
var Managed = []string{
	IndexPath,
	"index_page*.html",
	AboutPath,
	ContactPath,
	ContentDir + "/topic_*_page*.html",
	SitemapIndexPath,
	"sitemap_*.xml",
	"sitemap_*.xml.gz",
	AdScriptPath,
}

// Layout turns topic ids, page numbers and chunk indexes into relative
// paths and absolute URLs. Every path is a pure function of its inputs.
type Layout struct {
	domain string
	gzip   bool
}

// NewLayout returns a Layout rooted at domain. gzip selects compressed
// sitemap chunk names.
func NewLayout(domain string, gzip bool) Layout {
	return Layout{domain: strings.TrimRight(domain, "/"), gzip: gzip}
}

// Domain returns the site root without a trailing slash.
func (l Layout) Domain() string { return l.domain }

// Gzip reports whether sitemap chunks are compressed.
func (l Layout) Gzip() bool { return l.gzip }

// IndexPage returns the path of the n-th topic index page.
func (l Layout) IndexPage(n int) string {
	if n <= 1 {
		return IndexPath
	}
	return fmt.Sprintf("index_page%d.html", n)
}

// ContentPage returns the path of page n of a topic.
func (l Layout) ContentPage(topic, n int) string {
	return path.Join(ContentDir, fmt.Sprintf("topic_%d_page%d.html", topic, n))
}

// SitemapChunk returns the path of the i-th (1-indexed) sitemap chunk.
func (l Layout) SitemapChunk(i int) string {
	name := fmt.Sprintf("sitemap_%d.xml", i)
	if l.gzip {
		name += ".gz"
	}
	return name
}

// URL returns the absolute URL of a relative path.
func (l Layout) URL(p string) string {
	return l.domain + "/" + strings.TrimLeft(p, "/")
}

// RelativeRoot returns the prefix leading from p back to the output root:
// "./" for top-level files, "../" per directory level otherwise.
func RelativeRoot(p string) string {
	depth := strings.Count(strings.Trim(p, "/"), "/")
	if depth == 0 {
		return "./"
	}
	return strings.Repeat("../", depth)
}
