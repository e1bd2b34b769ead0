// Package paginate slices ordered lists into fixed-size, 1-indexed pages.
package paginate

import (
	"fmt"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

// Policy decides how many pages a list of n items needs.
type Policy int

const (
	// Legacy always emits floor(n/size)+1 pages: an exact multiple of the
	// page size gets an empty trailing page, and an empty list gets one
	// empty page.
	Legacy Policy = iota
	// Trim emits ceil(n/size) pages, never fewer than one.
	Trim
)

func (p Policy) String() string {
	switch p {
	case Legacy:
		return "legacy"
	case Trim:
		return "trim"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Page is one slice of a list. Number runs from 1 to Total.
type Page[T any] struct {
	Number int
	Total  int
	Items  []T
}

// First reports whether this is the first page.
func (p Page[T]) First() bool { return p.Number == 1 }

// Last reports whether this is the final page.
func (p Page[T]) Last() bool { return p.Number == p.Total }

// Paginator holds a validated page size and policy.
type Paginator struct {
	size   int
	policy Policy
}

// New returns a Paginator. size must be at least 1.
func New(size int, policy Policy) (Paginator, error) {
	if size < 1 {
		return Paginator{}, fmt.Errorf("paginate: page size %d: %w", size, internalerr.ErrInvalidInput)
	}
	if policy != Legacy && policy != Trim {
		return Paginator{}, fmt.Errorf("paginate: unknown %v: %w", policy, internalerr.ErrInvalidInput)
	}
	return Paginator{size: size, policy: policy}, nil
}

// Size returns the page size.
func (p Paginator) Size() int { return p.size }

// Policy returns the page-count policy.
func (p Paginator) Policy() Policy { return p.policy }

// PageCount returns the number of pages n items occupy.
func (p Paginator) PageCount(n int) int {
	if n < 0 {
		n = 0
	}
	if p.policy == Trim {
		if n == 0 {
			return 1
		}
		return (n + p.size - 1) / p.size
	}
	return n/p.size + 1
}

// Paginate splits items into exactly p.PageCount(len(items)) pages. Pages
// past the end of items are empty.
func Paginate[T any](p Paginator, items []T) []Page[T] {
	total := p.PageCount(len(items))
	pages := make([]Page[T], total)
	for i := range pages {
		start := i * p.size
		end := start + p.size
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		pages[i] = Page[T]{Number: i + 1, Total: total, Items: items[start:end:end]}
	}
	return pages
}
