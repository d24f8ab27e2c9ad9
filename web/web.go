// Package web renders the two HTML pages and serves the embedded static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/user/cropadvisor-go/auth"
	"github.com/user/cropadvisor-go/logging"
	"github.com/user/cropadvisor-go/recommend"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticDir embed.FS

// StaticFS is the embedded static directory with the "static" prefix stripped.
var StaticFS fs.FS

func init() {
	StaticFS, _ = fs.Sub(staticDir, "static")
}

const (
	indexTemplate    = "index.html"
	detailedTemplate = "detailed_recommendations.html"
)

// IndexData is the view model of the landing page.
type IndexData struct {
	LoggedIn bool
	Username string
}

// DetailedPayload is the JSON document the index page passes in the data query parameter.
type DetailedPayload struct {
	Recommendations []recommend.Recommendation `json:"recommendations"`
	UserInputs      map[string]any             `json:"user_inputs"`
}

// DetailedData is the view model of the detailed recommendations page.
type DetailedData struct {
	Data  DetailedPayload
	Error string
}

// Pages renders the server side HTML views.
type Pages struct {
	templates *template.Template
}

var funcs = template.FuncMap{
	"inc":     func(i int) int { return i + 1 },
	"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
}

// NewPages parses the embedded templates.
func NewPages() (*Pages, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Pages{templates: tmpl}, nil
}

// HandleIndex renders the landing page. Signed-in users get the recommendation form.
func (p *Pages) HandleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := IndexData{}
		if id := auth.IdentityFromContext(r.Context()); id != nil {
			data.LoggedIn = true
			data.Username = id.Username
		}
		p.render(w, r, http.StatusOK, indexTemplate, data)
	}
}

// HandleDetailed renders the recommendations carried in the data query parameter.
func (p *Pages) HandleDetailed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("data")
		if raw == "" {
			p.render(w, r, http.StatusBadRequest, detailedTemplate, DetailedData{Error: "No recommendation data supplied."})
			return
		}

		var view DetailedData
		if err := json.Unmarshal([]byte(raw), &view.Data); err != nil {
			p.render(w, r, http.StatusBadRequest, detailedTemplate, DetailedData{Error: "Recommendation data is not valid JSON."})
			return
		}
		p.render(w, r, http.StatusOK, detailedTemplate, view)
	}
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// StaticHandler serves the embedded assets. Mount it with the /static/ prefix stripped.
func StaticHandler() http.Handler {
	return http.FileServer(http.FS(StaticFS))
}
