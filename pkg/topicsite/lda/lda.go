// Package lda fits a Latent Dirichlet Allocation topic model. The sampler's
// random source is seeded and minibatches run on a single process, so equal
// input and seed reproduce equal output.
package lda

import (
	"context"
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/james-bowman/nlp"
	"github.com/james-bowman/sparse"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/topicsite/pkg/topicsite/ingest"
	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

// DefaultIterations is the number of passes over the corpus when
// Options.Iterations is 0.
const DefaultIterations = 100

// Options configures Fit.
type Options struct {
	Topics     int
	Seed       int64
	Iterations int
	// Alpha is the document-topic Dirichlet prior (0 = 1/Topics)
	Alpha float64
	// Beta is the topic-word Dirichlet prior (0 = 1/Topics)
	Beta float64
}

// Model is a fitted topic model.
type Model struct {
	Topics int
	Terms  int
	Alpha  float64
	Beta   float64

	// TopicWord holds the word weights of every topic (Topics x Terms,
	// each row sums to 1).
	TopicWord *mat.Dense
	// DocTopic holds the topic distribution of every document
	// (documents x Topics, each row sums to 1). Documents without
	// vocabulary terms get the uniform distribution.
	DocTopic *mat.Dense

	LogLikelihood float64
}

// Fit trains the model on docs. vocabSize is the number of vocabulary terms
// that DocVector term indices refer to.
func Fit(ctx context.Context, docs []ingest.DocVector, vocabSize int, opts Options) (*Model, error) {
	if opts.Topics <= 0 {
		return nil, fmt.Errorf("lda: topic count %d must be positive: %w", opts.Topics, internalerr.ErrModelFit)
	}
	if distinct := distinctDocs(docs); opts.Topics > distinct {
		return nil, fmt.Errorf("lda: topic count %d exceeds %d distinct documents: %w",
			opts.Topics, distinct, internalerr.ErrModelFit)
	}
	if vocabSize <= 0 {
		return nil, fmt.Errorf("lda: vocabulary size %d: %w", vocabSize, internalerr.ErrInvalidInput)
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.Alpha == 0 {
		opts.Alpha = 1 / float64(opts.Topics)
	}
	if opts.Beta == 0 {
		opts.Beta = 1 / float64(opts.Topics)
	}

	counts, err := termDocMatrix(docs, vocabSize)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := nlp.NewLatentDirichletAllocation(opts.Topics)
	model.Iterations = opts.Iterations
	model.TransformationPasses = max(1, opts.Iterations/2)
	model.Alpha = opts.Alpha
	model.Eta = opts.Beta
	model.Rnd = rand.New(rand.NewSource(uint64(opts.Seed)))
	// parallel minibatches merge in scheduling order
	model.Processes = 1
	// the pass count alone decides convergence
	model.PerplexityEvaluationFrequency = opts.Iterations + 1

	docsOverTopics, err := model.FitTransform(counts)
	if err != nil {
		return nil, fmt.Errorf("lda: %v: %w", err, internalerr.ErrModelFit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &Model{
		Topics:    opts.Topics,
		Terms:     vocabSize,
		Alpha:     opts.Alpha,
		Beta:      opts.Beta,
		TopicWord: normalizeRows(mat.DenseCopyOf(model.Components())),
		DocTopic:  normalizeRows(mat.DenseCopyOf(docsOverTopics.T())),
	}
	for d, doc := range docs {
		if len(doc) == 0 {
			m.DocTopic.SetRow(d, uniform(opts.Topics))
		}
	}
	m.LogLikelihood = m.likelihood(docs)
	log.Infof("lda: %d topics over %d documents, %d terms, log likelihood %.2f",
		m.Topics, len(docs), vocabSize, m.LogLikelihood)
	return m, nil
}

// termDocMatrix lays docs out as the terms x documents count matrix the
// model consumes.
func termDocMatrix(docs []ingest.DocVector, vocabSize int) (*sparse.CSC, error) {
	dok := sparse.NewDOK(vocabSize, len(docs))
	for d, doc := range docs {
		for _, tc := range doc {
			if tc.Term < 0 || tc.Term >= vocabSize {
				return nil, fmt.Errorf("lda: document %d references term %d outside vocabulary of %d: %w",
					d, tc.Term, vocabSize, internalerr.ErrInvalidInput)
			}
			dok.Set(tc.Term, d, float64(tc.Count))
		}
	}
	return dok.ToCSC(), nil
}

func normalizeRows(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		if sum := floats.Sum(row); sum > 0 {
			floats.Scale(1/sum, row)
		} else {
			copy(row, uniform(cols))
		}
	}
	return m
}

func uniform(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = 1 / float64(n)
	}
	return row
}

// likelihood is the log likelihood of the corpus tokens under the fitted
// mixtures.
func (m *Model) likelihood(docs []ingest.DocVector) float64 {
	sum := 0.0
	for d, doc := range docs {
		for _, tc := range doc {
			p := 0.0
			for t := 0; t < m.Topics; t++ {
				p += m.TopicWord.At(t, tc.Term) * m.DocTopic.At(d, t)
			}
			if p > 0 {
				sum += float64(tc.Count) * math.Log(p)
			}
		}
	}
	return sum
}

func distinctDocs(docs []ingest.DocVector) int {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		seen[d.Key()] = struct{}{}
	}
	return len(seen)
}
