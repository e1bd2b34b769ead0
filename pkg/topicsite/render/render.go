// Package render turns typed page contexts into markup.
package render

import "fmt"

// Renderer produces markup for each kind of page.
type Renderer interface {
	Index(IndexPage) ([]byte, error)
	Content(ContentPage) ([]byte, error)
	Info(InfoPage) ([]byte, error)
}

// Site carries the read-only values every page needs.
type Site struct {
	Domain       string
	AnalyticsID  string
	AdID         string
	AdSlot       string
	ContactEmail string
	// RelativeRoot leads from the page back to the site root: "./" or "../"
	RelativeRoot string
}

// At returns a copy of s for a page whose path back to the root is rel.
func (s Site) At(rel string) Site {
	s.RelativeRoot = rel
	return s
}

// TopicLink is one entry of the topic index.
type TopicLink struct {
	ID    int
	Title string
	// URL is relative to the index page
	URL string
	// Size is the number of records in the topic
	Size int
}

// IndexPage is one page of the topic index.
type IndexPage struct {
	Site Site
	// URL is the absolute URL of this page
	URL        string
	Topics     []TopicLink
	Page       int
	TotalPages int
	// Prev and Next are relative links, empty at the ends
	Prev string
	Next string
}

// Entry is one record shown on a content page.
type Entry struct {
	Author string
	Text   string
}

// ContentPage is one page of a topic's records.
type ContentPage struct {
	Site       Site
	URL        string
	Title      string
	TopicID    int
	Keywords   []string
	Entries    []Entry
	Page       int
	TotalPages int
	Prev       string
	Next       string
	// SitemapURL is the absolute URL of the sitemap file listing this page
	SitemapURL string
}

// InfoKind names a static informational page.
type InfoKind int

const (
	About InfoKind = iota
	Contact
)

func (k InfoKind) String() string {
	switch k {
	case About:
		return "about"
	case Contact:
		return "contact"
	default:
		return fmt.Sprintf("InfoKind(%d)", int(k))
	}
}

// InfoPage is the about or contact page.
type InfoPage struct {
	Site Site
	Kind InfoKind
}
