package lda

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/topicsite/pkg/topicsite/ingest"
)

// TitleWords is the number of leading keywords joined into a topic title.
const TitleWords = 3

// Topic describes one fitted topic for display.
type Topic struct {
	ID       int
	Terms    []int // vocabulary indices of Keywords
	Keywords []string
	Title    string
}

// TopTerms returns the n highest-weighted vocabulary indices of topic,
// heaviest first. Equal weights keep ascending term order.
func (m *Model) TopTerms(topic, n int) []int {
	weights := mat.Row(nil, topic, m.TopicWord)
	idx := make([]int, len(weights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return weights[idx[a]] > weights[idx[b]]
	})
	if n < len(idx) {
		idx = idx[:n]
	}
	return idx
}

// Describe returns every topic with its top n keywords and title.
func (m *Model) Describe(vocab *ingest.Vocabulary, n int) []Topic {
	topics := make([]Topic, m.Topics)
	for t := range topics {
		terms := m.TopTerms(t, n)
		keywords := make([]string, len(terms))
		for i, term := range terms {
			keywords[i] = vocab.Term(term)
		}
		topics[t] = Topic{
			ID:       t,
			Terms:    terms,
			Keywords: keywords,
			Title:    Title(keywords),
		}
	}
	return topics
}

// Title joins the first TitleWords keywords with spaces.
func Title(keywords []string) string {
	if len(keywords) > TitleWords {
		keywords = keywords[:TitleWords]
	}
	return strings.Join(keywords, " ")
}
