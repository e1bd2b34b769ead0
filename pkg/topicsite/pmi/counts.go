package pmi

import (
	"sort"

	"github.com/cognicore/topicsite/pkg/topicsite/ingest"
)

// Counter maintains document co-occurrence counts for a tracked set of
// vocabulary terms.
type Counter struct {
	N   int64              // total number of documents
	Nx  map[int]int64      // document frequency per term
	Nxy map[TermPair]int64 // co-occurrence count per term pair

	tracked map[int]struct{}
}

// TermPair is an ordered pair of vocabulary indices (T1 < T2).
type TermPair struct {
	T1, T2 int
}

// NewPair returns the canonical pair for a and b.
func NewPair(a, b int) TermPair {
	if a > b {
		a, b = b, a
	}
	return TermPair{T1: a, T2: b}
}

// NewCounter creates a counter for the given terms. Counting only tracked
// terms keeps pair storage proportional to the keyword sets rather than the
// whole vocabulary.
func NewCounter(tracked []int) *Counter {
	c := &Counter{
		Nx:      make(map[int]int64),
		Nxy:     make(map[TermPair]int64),
		tracked: make(map[int]struct{}, len(tracked)),
	}
	for _, t := range tracked {
		c.tracked[t] = struct{}{}
	}
	return c
}

// AddDocument updates counts for one document.
func (c *Counter) AddDocument(doc ingest.DocVector) {
	c.N++

	var present []int
	for _, tc := range doc {
		if _, ok := c.tracked[tc.Term]; ok && tc.Count > 0 {
			present = append(present, tc.Term)
		}
	}
	sort.Ints(present)

	for i, a := range present {
		c.Nx[a]++
		for _, b := range present[i+1:] {
			c.Nxy[TermPair{T1: a, T2: b}]++
		}
	}
}

// PairCount returns the co-occurrence count for a term pair
func (c *Counter) PairCount(a, b int) int64 {
	return c.Nxy[NewPair(a, b)]
}

// TermCount returns the document frequency for a term
func (c *Counter) TermCount(t int) int64 {
	return c.Nx[t]
}

// Coherence returns the mean NPMI over all pairs of terms. Fewer than two
// terms score 0.
func (c *Counter) Coherence(calc *Calculator, terms []int) float64 {
	if len(terms) < 2 {
		return 0
	}
	sum, pairs := 0.0, 0
	for i, a := range terms {
		for _, b := range terms[i+1:] {
			sum += calc.NPMI(c.PairCount(a, b), c.TermCount(a), c.TermCount(b), c.N)
			pairs++
		}
	}
	return sum / float64(pairs)
}
