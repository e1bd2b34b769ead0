package topicsite

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	log "github.com/golang/glog"
	"github.com/hashicorp/go-multierror"

	"github.com/cognicore/topicsite/internal/corpus"
	"github.com/cognicore/topicsite/pkg/topicsite/config"
	"github.com/cognicore/topicsite/pkg/topicsite/group"
	"github.com/cognicore/topicsite/pkg/topicsite/ingest"
	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
	"github.com/cognicore/topicsite/pkg/topicsite/lda"
	"github.com/cognicore/topicsite/pkg/topicsite/metrics"
	"github.com/cognicore/topicsite/pkg/topicsite/paginate"
	"github.com/cognicore/topicsite/pkg/topicsite/pmi"
	"github.com/cognicore/topicsite/pkg/topicsite/render"
	"github.com/cognicore/topicsite/pkg/topicsite/site"
	"github.com/cognicore/topicsite/pkg/topicsite/sitemap"
	"github.com/cognicore/topicsite/pkg/topicsite/store"
	"github.com/cognicore/topicsite/pkg/topicsite/store/sqlite"
)

// Generator runs the corpus-to-site pipeline
type Generator struct {
	cfg        *config.Config
	tokenizer  *ingest.Tokenizer
	renderer   render.Renderer
	store      store.Store
	ownsStore  bool
	metrics    *metrics.Recorder
	ids        *store.IDSource
	now        func() time.Time
	recordPage paginate.Paginator
	topicPage  paginate.Paginator
}

// AssetProvider is implemented by renderers that ship static files.
type AssetProvider interface {
	Assets(render.Site) ([]render.Asset, error)
}

// Options overrides the collaborators a Generator builds from its
// configuration
type Options struct {
	// Renderer defaults to the embedded template renderer
	Renderer render.Renderer
	// Store defaults to a SQLite manifest when output.manifest is set
	Store store.Store
	// Metrics defaults to a fresh recorder
	Metrics *metrics.Recorder
	// Now defaults to time.Now
	Now func() time.Time
}

// New validates cfg and creates a Generator
func New(ctx context.Context, cfg *config.Config, opts Options) (*Generator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config: %w", internalerr.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	comp, err := config.NewLoader(cfg.Vectorizer).Load()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, internalerr.ErrInvalidConfig)
	}

	policy := paginate.Legacy
	if cfg.Pagination.TrimTrailingPage {
		policy = paginate.Trim
	}
	recordPage, err := paginate.New(cfg.Pagination.RecordsPerPage, policy)
	if err != nil {
		return nil, err
	}
	topicPage, err := paginate.New(cfg.Pagination.TopicsPerPage, policy)
	if err != nil {
		return nil, err
	}
	log.V(1).Infof("paginating %d records and %d topics per page, %s policy",
		recordPage.Size(), topicPage.Size(), recordPage.Policy())

	g := &Generator{
		cfg:        cfg,
		tokenizer:  comp.Tokenizer,
		renderer:   opts.Renderer,
		store:      opts.Store,
		metrics:    opts.Metrics,
		ids:        store.NewIDSource(),
		now:        opts.Now,
		recordPage: recordPage,
		topicPage:  topicPage,
	}
	if g.renderer == nil {
		tr, err := render.NewTemplateRenderer()
		if err != nil {
			return nil, err
		}
		g.renderer = tr
	}
	if g.metrics == nil {
		g.metrics = metrics.New()
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.store == nil && cfg.Output.Manifest != "" {
		st, err := sqlite.OpenSQLite(ctx, cfg.Output.Manifest)
		if err != nil {
			return nil, fmt.Errorf("open manifest %s: %w", cfg.Output.Manifest, err)
		}
		g.store = st
		g.ownsStore = true
	}
	return g, nil
}

// Close releases the manifest store if the Generator opened it
func (g *Generator) Close() error {
	if g.ownsStore && g.store != nil {
		return g.store.Close()
	}
	return nil
}

// TopicSummary describes one topic of a finished run
type TopicSummary struct {
	lda.Topic
	Coherence float64
	Size      int
	Pages     int
}

// Result summarizes a finished run
type Result struct {
	RunID         string
	Records       int
	VocabSize     int
	Topics        []TopicSummary
	URLs          []string
	SitemapChunks int
	Files         int
	Bytes         int64
}

// Run executes every stage once. All values are computed before anything
// is written; a failed run may leave a partial output directory and is
// safe to repeat.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	started := g.now()
	res := &Result{RunID: g.ids.New(started)}
	log.Infof("run %s: starting", res.RunID)

	done := g.metrics.Stage("load")
	records, err := corpus.Load(ctx, g.cfg.Corpus.Dir, corpus.LoadOptions{
		Pattern:      g.cfg.Corpus.Pattern,
		Encoding:     g.cfg.Corpus.Encoding,
		AuthorColumn: g.cfg.Corpus.AuthorColumn,
		TextColumn:   g.cfg.Corpus.TextColumn,
		HasHeader:    g.cfg.Corpus.HasHeader,
		Limit:        g.cfg.Corpus.Limit,
	})
	done()
	if err != nil {
		return nil, err
	}
	res.Records = len(records)

	done = g.metrics.Stage("vectorize")
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vec := &ingest.Vectorizer{
		Tokenizer:       g.tokenizer,
		MaxDocFreqRatio: g.cfg.Vectorizer.MaxDocFreqRatio,
		MinDocFreqCount: g.cfg.Vectorizer.MinDocFreqCount,
		Workers:         g.cfg.Pipeline.Workers,
	}
	vocab, docs, err := vec.FitTransform(ctx, texts)
	done()
	if err != nil {
		return nil, err
	}
	res.VocabSize = vocab.Len()

	done = g.metrics.Stage("fit")
	model, err := lda.Fit(ctx, docs, vocab.Len(), lda.Options{
		Topics:     g.cfg.Model.Topics,
		Seed:       g.cfg.Model.Seed,
		Iterations: g.cfg.Model.Iterations,
		Alpha:      g.cfg.Model.Alpha,
		Beta:       g.cfg.Model.Beta,
	})
	done()
	if err != nil {
		return nil, err
	}
	log.Infof("run %s: fitted %d topics over %d records, %d terms (log likelihood %.1f)",
		res.RunID, model.Topics, len(records), vocab.Len(), model.LogLikelihood)
	g.metrics.SetCorpus(len(records), vocab.Len(), model.Topics)

	done = g.metrics.Stage("group")
	assignments := group.Assign(model.DocTopic)
	groups, err := group.Partition(records, assignments, model.Topics)
	done()
	if err != nil {
		return nil, err
	}
	res.Topics = g.summarize(model, vocab, docs, groups)

	done = g.metrics.Stage("render")
	artifacts, chunks, urls, err := g.build(res.Topics, groups)
	done()
	if err != nil {
		return nil, err
	}
	res.URLs = urls
	res.SitemapChunks = chunks

	done = g.metrics.Stage("write")
	writer := site.NewWriter(g.cfg.Output.Dir, g.cfg.Pipeline.Workers)
	writer.Managed = site.Managed
	stats, err := writer.Write(ctx, artifacts)
	done()
	if err != nil {
		return nil, err
	}
	res.Files = stats.Files
	res.Bytes = stats.Bytes
	g.metrics.SetOutput(stats.Files, chunks)

	if g.store != nil {
		if err := g.store.SaveRun(ctx, manifest(res, started, g.cfg.Model.Seed, model, assignments)); err != nil {
			return nil, fmt.Errorf("save manifest: %w", err)
		}
	}

	g.metrics.Finished(g.now())
	if mf := g.cfg.Output.MetricsFile; mf != "" {
		if err := g.metrics.WriteTextfile(mf); err != nil {
			return nil, err
		}
	}

	log.Infof("run %s: %d records, %d topics, %d urls in %d sitemap files",
		res.RunID, res.Records, len(res.Topics), len(res.URLs), res.SitemapChunks)
	return res, nil
}

func (g *Generator) summarize(model *lda.Model, vocab *ingest.Vocabulary, docs []ingest.DocVector, groups []group.Group) []TopicSummary {
	described := model.Describe(vocab, g.cfg.Model.Keywords)

	var tracked []int
	for _, t := range described {
		tracked = append(tracked, t.Terms...)
	}
	counter := pmi.NewCounter(tracked)
	for _, d := range docs {
		counter.AddDocument(d)
	}
	calc := pmi.NewCalculator(1)

	out := make([]TopicSummary, len(described))
	mean := 0.0
	for i, t := range described {
		c := counter.Coherence(calc, t.Terms)
		mean += c
		out[i] = TopicSummary{
			Topic:     t,
			Coherence: c,
			Size:      groups[i].Len(),
			Pages:     g.recordPage.PageCount(groups[i].Len()),
		}
		log.V(1).Infof("topic %d %q: %d records, coherence %.3f", t.ID, t.Title, out[i].Size, c)
	}
	if len(out) > 0 {
		mean /= float64(len(out))
	}
	g.metrics.SetCoherence(mean)
	return out
}

// build renders every page and sitemap file. It returns the artifacts,
// the number of sitemap chunks and the enumerated URLs.
func (g *Generator) build(topics []TopicSummary, groups []group.Group) ([]site.Artifact, int, []string, error) {
	layout := site.NewLayout(g.cfg.Site.Domain, g.cfg.Sitemap.Gzip)
	base := render.Site{
		Domain:       layout.Domain(),
		AnalyticsID:  g.cfg.Site.AnalyticsID,
		AdID:         g.cfg.Site.AdID,
		AdSlot:       g.cfg.Site.AdSlot,
		ContactEmail: g.cfg.Site.ContactEmail,
		RelativeRoot: "./",
	}

	links := make([]render.TopicLink, len(topics))
	topicPages := make([]int, len(topics))
	for i, t := range topics {
		links[i] = render.TopicLink{ID: t.ID, Title: t.Title, URL: layout.ContentPage(t.ID, 1), Size: t.Size}
		topicPages[i] = t.Pages
	}
	indexPages := paginate.Paginate(g.topicPage, links)

	urls := sitemap.Enumerate(layout, len(indexPages), topicPages)
	asm, err := sitemap.NewAssembler(layout, urls, g.cfg.Sitemap.MaxURLsPerFile)
	if err != nil {
		return nil, 0, nil, err
	}

	var artifacts []site.Artifact
	add := func(p string, data []byte) {
		artifacts = append(artifacts, site.Artifact{Path: p, Data: data})
	}

	for _, page := range indexPages {
		p := layout.IndexPage(page.Number)
		ip := render.IndexPage{
			Site:       base.At(site.RelativeRoot(p)),
			URL:        layout.URL(p),
			Topics:     page.Items,
			Page:       page.Number,
			TotalPages: page.Total,
		}
		if !page.First() {
			ip.Prev = layout.IndexPage(page.Number - 1)
		}
		if !page.Last() {
			ip.Next = layout.IndexPage(page.Number + 1)
		}
		data, err := g.renderer.Index(ip)
		if err != nil {
			return nil, 0, nil, renderErr(p, err)
		}
		add(p, data)
	}

	for _, kind := range []render.InfoKind{render.About, render.Contact} {
		p := site.AboutPath
		if kind == render.Contact {
			p = site.ContactPath
		}
		data, err := g.renderer.Info(render.InfoPage{Site: base.At(site.RelativeRoot(p)), Kind: kind})
		if err != nil {
			return nil, 0, nil, renderErr(p, err)
		}
		add(p, data)
	}

	for i, t := range topics {
		entries := make([]render.Entry, len(groups[i].Records))
		for j, r := range groups[i].Records {
			entries[j] = render.Entry{Author: r.Author, Text: r.Text}
		}
		for _, page := range paginate.Paginate(g.recordPage, entries) {
			p := layout.ContentPage(t.ID, page.Number)
			url := layout.URL(p)
			chunk, ok := asm.Locate(url)
			if !ok {
				return nil, 0, nil, fmt.Errorf("%s missing from sitemap: %w", url, internalerr.ErrInvalidInput)
			}
			cp := render.ContentPage{
				Site:       base.At(site.RelativeRoot(p)),
				URL:        url,
				Title:      t.Title,
				TopicID:    t.ID,
				Keywords:   t.Keywords,
				Entries:    page.Items,
				Page:       page.Number,
				TotalPages: page.Total,
				SitemapURL: chunk.Location,
			}
			if !page.First() {
				cp.Prev = path.Base(layout.ContentPage(t.ID, page.Number-1))
			}
			if !page.Last() {
				cp.Next = path.Base(layout.ContentPage(t.ID, page.Number+1))
			}
			data, err := g.renderer.Content(cp)
			if err != nil {
				return nil, 0, nil, renderErr(p, err)
			}
			add(p, data)
		}
	}

	if ap, ok := g.renderer.(AssetProvider); ok {
		assets, err := ap.Assets(base)
		if err != nil {
			return nil, 0, nil, renderErr("assets", err)
		}
		for _, a := range assets {
			add(a.Path, a.Data)
		}
	}

	var encErr *multierror.Error
	for _, c := range asm.Chunks() {
		data, err := sitemap.EncodeURLSet(c)
		if err != nil {
			encErr = multierror.Append(encErr, err)
			continue
		}
		artifacts = append(artifacts, site.Artifact{Path: c.Path, Data: data, Gzip: layout.Gzip()})
	}
	idx := asm.Index()
	data, err := sitemap.EncodeIndex(idx)
	if err != nil {
		encErr = multierror.Append(encErr, err)
	}
	if err := encErr.ErrorOrNil(); err != nil {
		return nil, 0, nil, renderErr("sitemap", err)
	}
	add(idx.Path, data)

	return artifacts, len(asm.Chunks()), urls, nil
}

func renderErr(what string, err error) error {
	if errors.Is(err, internalerr.ErrRender) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %v: %w", what, err, internalerr.ErrRender)
}

func manifest(res *Result, started time.Time, seed int64, model *lda.Model, assignments []int) store.Run {
	run := store.Run{
		ID:          res.RunID,
		StartedAt:   started,
		Records:     res.Records,
		VocabSize:   res.VocabSize,
		TopicCount:  len(res.Topics),
		Seed:        seed,
		Topics:      make([]store.Topic, len(res.Topics)),
		Assignments: make([]store.Assignment, len(assignments)),
	}
	for i, t := range res.Topics {
		run.Topics[i] = store.Topic{
			ID:        t.ID,
			Title:     t.Title,
			Keywords:  t.Keywords,
			Coherence: t.Coherence,
			Size:      t.Size,
		}
	}
	for i, topic := range assignments {
		run.Assignments[i] = store.Assignment{
			Record:      i,
			Topic:       topic,
			Probability: model.DocTopic.At(i, topic),
		}
	}
	return run
}
