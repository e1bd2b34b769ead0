package internalerr

import "errors"

// Sentinel errors for every way a run can fail. Callers wrap them with
// fmt.Errorf("...: %w", ...) and test with errors.Is.
var (
	// ErrCorpusEmpty means the corpus directory yielded zero records.
	ErrCorpusEmpty = errors.New("corpus is empty")
	// ErrEmptyVocabulary means frequency or stopword filtering removed every term.
	ErrEmptyVocabulary = errors.New("vocabulary is empty")
	// ErrModelFit means the topic count is invalid for the corpus.
	ErrModelFit = errors.New("topic model fit failed")
	// ErrRender means the renderer failed for a page context.
	ErrRender = errors.New("render failed")
	// ErrWrite means an output artifact could not be written.
	ErrWrite = errors.New("write failed")

	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotFound      = errors.New("not found")
)
