package views

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"

	"uikitstore/storefront"
)

//go:embed templates/*.html
var templateFS embed.FS

// Script is the page script that binds data-action elements to the command endpoint.
//
//go:embed static/app.js
var Script []byte

// Region names. Each maps to an element with id "region-<name>" in the layout.
const (
	RegionHeader     = "header"
	RegionCategories = "categories"
	RegionMain       = "main"
	RegionModal      = "modal"
	RegionFlash      = "flash"
)

var Regions = []string{RegionHeader, RegionCategories, RegionMain, RegionModal, RegionFlash}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("views").
		Funcs(template.FuncMap{"action": actionAttrs}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// actionAttrs renders an Action as the data attributes the page script dispatches on.
func actionAttrs(a Action) template.HTMLAttr {
	if a.Name == "" {
		return ""
	}
	return template.HTMLAttr(fmt.Sprintf(`data-action="%s" data-target="%s"`,
		html.EscapeString(a.Name), html.EscapeString(a.Target)))
}

// Fragments renders every region of s.
func (r *Renderer) Fragments(s *storefront.State) (map[string]string, error) {
	v := Build(s)
	out := make(map[string]string, len(Regions))
	for _, region := range Regions {
		var buf bytes.Buffer
		if err := r.tmpl.ExecuteTemplate(&buf, region, v); err != nil {
			return nil, fmt.Errorf("render %s: %w", region, err)
		}
		out[region] = buf.String()
	}
	return out, nil
}

// Page writes the full document for s.
func (r *Renderer) Page(w io.Writer, s *storefront.State) error {
	frags, err := r.Fragments(s)
	if err != nil {
		return err
	}
	regions := make(map[string]template.HTML, len(frags))
	for name, frag := range frags {
		// Fragments come out of html/template already escaped.
		regions[name] = template.HTML(frag)
	}
	return r.tmpl.ExecuteTemplate(w, "layout", struct {
		Theme   string
		Query   string
		Regions map[string]template.HTML
	}{
		Theme:   string(s.Theme),
		Query:   s.Query,
		Regions: regions,
	})
}

// Diff returns the regions of next whose markup differs from prev.
func Diff(prev, next map[string]string) map[string]string {
	patch := make(map[string]string)
	for region, markup := range next {
		if old, ok := prev[region]; !ok || old != markup {
			patch[region] = markup
		}
	}
	return patch
}
