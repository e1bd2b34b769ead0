// Package metrics records run statistics for export through the node
// exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "topicsite"

// Recorder holds the gauges of one generator process. Each Recorder owns
// its registry so runs never share collectors.
type Recorder struct {
	reg *prometheus.Registry

	records   prometheus.Gauge
	vocab     prometheus.Gauge
	topics    prometheus.Gauge
	coherence prometheus.Gauge
	pages     prometheus.Gauge
	chunks    prometheus.Gauge
	lastRun   prometheus.Gauge
	stages    *prometheus.GaugeVec
}

// New creates a Recorder with every gauge registered.
func New() *Recorder {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	r := &Recorder{
		reg:       prometheus.NewRegistry(),
		records:   gauge("records", "Records loaded from the corpus."),
		vocab:     gauge("vocabulary_terms", "Terms kept after frequency and stopword filtering."),
		topics:    gauge("topics", "Topics fitted by the model."),
		coherence: gauge("mean_topic_coherence", "Mean NPMI coherence over all topics."),
		pages:     gauge("pages_written", "Artifacts written to the output directory."),
		chunks:    gauge("sitemap_chunks", "Sitemap files referenced by the sitemap index."),
		lastRun:   gauge("last_run_timestamp_seconds", "Unix time the last successful run finished."),
		stages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage in the last run.",
		}, []string{"stage"}),
	}
	r.reg.MustRegister(r.records, r.vocab, r.topics, r.coherence, r.pages, r.chunks, r.lastRun, r.stages)
	return r
}

// SetCorpus records the corpus and model dimensions.
func (r *Recorder) SetCorpus(records, vocabTerms, topics int) {
	r.records.Set(float64(records))
	r.vocab.Set(float64(vocabTerms))
	r.topics.Set(float64(topics))
}

// SetCoherence records the mean topic coherence.
func (r *Recorder) SetCoherence(mean float64) { r.coherence.Set(mean) }

// SetOutput records what the writer produced.
func (r *Recorder) SetOutput(files, sitemapChunks int) {
	r.pages.Set(float64(files))
	r.chunks.Set(float64(sitemapChunks))
}

// Finished stamps the completion time of a successful run.
func (r *Recorder) Finished(t time.Time) {
	r.lastRun.Set(float64(t.Unix()))
}

// Stage starts timing a pipeline stage; call the returned func when the
// stage ends.
func (r *Recorder) Stage(name string) func() {
	start := time.Now()
	return func() {
		r.stages.WithLabelValues(name).Set(time.Since(start).Seconds())
	}
}

// WriteTextfile atomically writes every gauge to path in the text
// exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
