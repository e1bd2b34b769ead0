// Package group partitions records by their primary topic.
package group

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/topicsite/internal/corpus"
	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

// Group is the ordered list of records sharing one primary topic.
type Group struct {
	Topic   int
	Records []corpus.Record
	Authors []string
}

// Len returns the number of records in the group.
func (g Group) Len() int { return len(g.Records) }

// Assign returns the primary topic of every row of docTopic: the column
// with the highest probability, the lowest column winning ties.
func Assign(docTopic mat.Matrix) []int {
	rows, cols := docTopic.Dims()
	out := make([]int, rows)
	row := make([]float64, cols)
	for i := range out {
		mat.Row(row, i, docTopic)
		out[i] = floats.MaxIdx(row)
	}
	return out
}

// Partition builds exactly topics groups, indexed by topic id, preserving
// corpus order inside each group. Every record lands in exactly one group.
func Partition(records []corpus.Record, assignments []int, topics int) ([]Group, error) {
	if len(records) != len(assignments) {
		return nil, fmt.Errorf("group: %d records but %d assignments: %w",
			len(records), len(assignments), internalerr.ErrInvalidInput)
	}
	if topics <= 0 {
		return nil, fmt.Errorf("group: topic count %d: %w", topics, internalerr.ErrInvalidInput)
	}

	groups := make([]Group, topics)
	for t := range groups {
		groups[t].Topic = t
	}
	for i, rec := range records {
		t := assignments[i]
		if t < 0 || t >= topics {
			return nil, fmt.Errorf("group: record %d assigned to topic %d outside [0, %d): %w",
				i, t, topics, internalerr.ErrInvalidInput)
		}
		groups[t].Records = append(groups[t].Records, rec)
		groups[t].Authors = append(groups[t].Authors, rec.Author)
	}
	return groups, nil
}
