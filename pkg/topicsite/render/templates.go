package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"github.com/Masterminds/sprig"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

//go:embed templates/*.html static/js/adsense.js
var files embed.FS

// AdScript is the embedded path of the ad loader asset.
const AdScript = "static/js/adsense.js"

// Asset is a static file shipped with the site.
type Asset struct {
	Path string
	Data []byte
}

// TemplateRenderer renders pages from the embedded html templates.
type TemplateRenderer struct {
	pages *template.Template
	ads   *texttemplate.Template
}

var _ Renderer = (*TemplateRenderer)(nil)

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	pages, err := template.New("pages").Funcs(sprig.FuncMap()).ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %v: %w", err, internalerr.ErrRender)
	}
	ads, err := texttemplate.New("adsense.js").Funcs(sprig.TxtFuncMap()).ParseFS(files, AdScript)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", AdScript, err, internalerr.ErrRender)
	}
	return &TemplateRenderer{pages: pages, ads: ads}, nil
}

func (r *TemplateRenderer) Index(p IndexPage) ([]byte, error) {
	return r.execute("index.html", p)
}

func (r *TemplateRenderer) Content(p ContentPage) ([]byte, error) {
	return r.execute("content.html", p)
}

func (r *TemplateRenderer) Info(p InfoPage) ([]byte, error) {
	switch p.Kind {
	case About:
		return r.execute("about.html", p)
	case Contact:
		return r.execute("contact.html", p)
	default:
		return nil, fmt.Errorf("render %v page: %w", p.Kind, internalerr.ErrRender)
	}
}

// Assets returns the static files, with site values filled in.
func (r *TemplateRenderer) Assets(s Site) ([]Asset, error) {
	var buf bytes.Buffer
	if err := r.ads.Execute(&buf, s); err != nil {
		return nil, fmt.Errorf("render %s: %v: %w", AdScript, err, internalerr.ErrRender)
	}
	return []Asset{{Path: AdScript, Data: buf.Bytes()}}, nil
}

func (r *TemplateRenderer) execute(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.pages.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %v: %w", name, err, internalerr.ErrRender)
	}
	return buf.Bytes(), nil
}
