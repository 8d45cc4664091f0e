package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"
	ginrender "github.com/gin-gonic/gin/render"
)

//go:embed templates
var templatesFS embed.FS

// Pages are the templates compiled at startup.
var Pages = []string{
	"dashboard.html",
	"policies.html",
	"policy_detail.html",
	"policy_new.html",
	"error.html",
}

var htmlContentType = []string{"text/html; charset=utf-8"}

func init() {
	if !pongo2.FilterExists("tojson") {
		pongo2.RegisterFilter("tojson", filterToJSON)
	}
}

// filterToJSON embeds a value as JSON, e.g. chart data inside a script tag.
// encoding/json escapes <, > and & so the output is safe in HTML.
func filterToJSON(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	out, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:tojson", OrigError: err}
	}
	return pongo2.AsSafeValue(string(out)), nil
}

// Renderer implements gin's HTMLRender over pongo2 templates.
type Renderer struct {
	templates map[string]*pongo2.Template
}

var _ ginrender.HTMLRender = (*Renderer)(nil)

// New compiles every page template from the embedded tree.
func New(debug bool) (*Renderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open templates: %w", err)
	}

	loader, err := pongo2.NewHttpFileSystemLoader(http.FS(sub), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create template loader: %w", err)
	}

	set := pongo2.NewSet("pages", loader)
	set.Debug = debug

	r := &Renderer{templates: make(map[string]*pongo2.Template, len(Pages))}
	for _, name := range Pages {
		tpl, err := set.FromFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile template %s: %w", name, err)
		}
		r.templates[name] = tpl
	}
	return r, nil
}

func (r *Renderer) Instance(name string, data any) ginrender.Render {
	return &Page{
		Name:     name,
		Template: r.templates[name],
		Context:  toContext(data),
	}
}

// Page is a single template execution.
type Page struct {
	Name     string
	Template *pongo2.Template
	Context  pongo2.Context
}

func (p *Page) Render(w http.ResponseWriter) error {
	p.WriteContentType(w)
	if p.Template == nil {
		return fmt.Errorf("unknown template %q", p.Name)
	}
	return p.Template.ExecuteWriter(p.Context, w)
}

func (p *Page) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = htmlContentType
	}
}

func toContext(data any) pongo2.Context {
	switch d := data.(type) {
	case pongo2.Context:
		return d
	case gin.H:
		return pongo2.Context(d)
	case map[string]any:
		return pongo2.Context(d)
	case nil:
		return pongo2.Context{}
	default:
		return pongo2.Context{"data": d}
	}
}
