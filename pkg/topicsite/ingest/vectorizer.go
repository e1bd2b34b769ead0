package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

// TermCount is one non-zero entry of a sparse document vector.
type TermCount struct {
	Term  int // index into the Vocabulary
	Count int
}

// DocVector is a sparse term-frequency vector sorted by term index.
type DocVector []TermCount

// Tokens returns the total number of vocabulary tokens in the document.
func (d DocVector) Tokens() int {
	n := 0
	for _, tc := range d {
		n += tc.Count
	}
	return n
}

// Key returns a string uniquely identifying the vector contents.
func (d DocVector) Key() string {
	return fmt.Sprint([]TermCount(d))
}

// PruneStats counts the terms removed by document-frequency filtering.
type PruneStats struct {
	TooCommon int
	TooRare   int
}

// Vocabulary is the ordered set of terms surviving filtering. It is built
// once by FitTransform and never modified.
type Vocabulary struct {
	terms  []string
	index  map[string]int
	df     []int
	Pruned PruneStats
}

// Len returns the number of terms.
func (v *Vocabulary) Len() int { return len(v.terms) }

// Term returns the term at index i.
func (v *Vocabulary) Term(i int) string { return v.terms[i] }

// Index returns the index of term.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// DocFreq returns the number of documents containing the term at index i.
func (v *Vocabulary) DocFreq(i int) int { return v.df[i] }

// Terms returns a copy of all terms in index order.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Vectorizer builds a vocabulary from a corpus and converts texts into
// term-frequency vectors over it.
type Vectorizer struct {
	Tokenizer *Tokenizer
	// MaxDocFreqRatio drops terms found in more than this fraction of documents
	MaxDocFreqRatio float64
	// MinDocFreqCount drops terms found in fewer documents than this
	MinDocFreqCount int
	// Workers bounds parallel term counting (0 = NumCPU)
	Workers int
}

// FitTransform builds the vocabulary from texts and returns one vector per
// text, in input order.
func (v *Vectorizer) FitTransform(ctx context.Context, texts []string) (*Vocabulary, []DocVector, error) {
	if v.Tokenizer == nil {
		return nil, nil, fmt.Errorf("vectorizer: nil tokenizer: %w", internalerr.ErrInvalidInput)
	}
	if len(texts) == 0 {
		return nil, nil, fmt.Errorf("vectorizer: no texts: %w", internalerr.ErrCorpusEmpty)
	}

	counts, err := v.countTerms(ctx, texts)
	if err != nil {
		return nil, nil, err
	}

	// Single-writer reduce into document frequencies.
	df := make(map[string]int)
	for _, c := range counts {
		for term := range c {
			df[term]++
		}
	}

	maxDocs := v.MaxDocFreqRatio * float64(len(texts))
	vocab := &Vocabulary{index: make(map[string]int)}
	for term, n := range df {
		switch {
		case float64(n) > maxDocs:
			vocab.Pruned.TooCommon++
		case n < v.MinDocFreqCount:
			vocab.Pruned.TooRare++
		default:
			vocab.terms = append(vocab.terms, term)
		}
	}
	if len(vocab.terms) == 0 {
		return nil, nil, fmt.Errorf("vectorizer: %d candidate terms, %d too common, %d too rare: %w",
			len(df), vocab.Pruned.TooCommon, vocab.Pruned.TooRare, internalerr.ErrEmptyVocabulary)
	}

	sort.Strings(vocab.terms)
	vocab.df = make([]int, len(vocab.terms))
	for i, term := range vocab.terms {
		vocab.index[term] = i
		vocab.df[i] = df[term]
	}

	vectors := make([]DocVector, len(counts))
	for i, c := range counts {
		vectors[i] = vocab.vector(c)
	}

	log.Infof("vocabulary: %d terms kept, %d too common, %d too rare, %d stopwords",
		vocab.Len(), vocab.Pruned.TooCommon, vocab.Pruned.TooRare, v.Tokenizer.Stoplist().Len())
	return vocab, vectors, nil
}

// countTerms tokenizes every text. Workers own disjoint contiguous shards
// of the output slice.
func (v *Vectorizer) countTerms(ctx context.Context, texts []string) ([]map[string]int, error) {
	workers := v.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(texts) {
		workers = len(texts)
	}

	counts := make([]map[string]int, len(texts))
	shard := (len(texts) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(texts); start += shard {
		start, end := start, start+shard
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				counts[i] = termCounts(v.Tokenizer.Tokenize(texts[i]))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (v *Vocabulary) vector(counts map[string]int) DocVector {
	vec := make(DocVector, 0, len(counts))
	for term, n := range counts {
		if i, ok := v.index[term]; ok {
			vec = append(vec, TermCount{Term: i, Count: n})
		}
	}
	sort.Slice(vec, func(a, b int) bool { return vec[a].Term < vec[b].Term })
	return vec
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	return counts
}
