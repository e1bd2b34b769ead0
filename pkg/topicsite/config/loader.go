package config

import (
	"fmt"

	"github.com/cognicore/topicsite/pkg/topicsite/ingest"
	"github.com/cognicore/topicsite/pkg/topicsite/stoplist"
)

// Loader loads the files referenced by the configuration and constructs
// the text-processing components.
type Loader struct {
	StoplistPath   string
	ExtraStopwords []string
}

// NewLoader returns a Loader for the vectorizer section.
func NewLoader(v Vectorizer) *Loader {
	return &Loader{
		StoplistPath:   v.Stoplist,
		ExtraStopwords: v.ExtraStopwords,
	}
}

// Components holds all loaded configuration components
type Components struct {
	Stoplist  *stoplist.Manager
	Tokenizer *ingest.Tokenizer
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stoplist = stoplist.NewManager(sl.Terms)
	} else {
		comp.Stoplist = stoplist.NewEnglish()
	}

	for _, w := range l.ExtraStopwords {
		comp.Stoplist.Add(w)
	}

	comp.Tokenizer = ingest.NewTokenizer(comp.Stoplist)
	return comp, nil
}
