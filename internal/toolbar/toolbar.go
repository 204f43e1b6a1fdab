// Package toolbar implements the developer toolbar: a set of panels
// mounted under a config-controlled prefix, with a live request feed
// over websocket. The toolbar is development tooling and ships
// disabled by default.
package toolbar

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sitekit/internal/infrastructure"
	"sitekit/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Panel is one toolbar section. Nav renders the short entry in the
// toolbar's index; Content renders the panel body.
type Panel interface {
	Name() string
	Title() string
	Nav(r *http.Request) template.HTML
	Content(r *http.Request) template.HTML
}

// RouteProvider is an optional panel capability: panels with their
// own endpoints get mounted under /<name>/.
type RouteProvider interface {
	Routes() chi.Router
}

// Toolbar aggregates panels and serves the toolbar UI.
type Toolbar struct {
	prefix string
	panels []Panel
	logger *slog.Logger
}

// New creates a toolbar mounted at prefix.
func New(prefix string, logger *slog.Logger, panels ...Panel) *Toolbar {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Toolbar{
		prefix: prefix,
		panels: panels,
		logger: logger.With(slog.String("component", "toolbar")),
	}
}

// Prefix returns the mount prefix.
func (t *Toolbar) Prefix() string {
	return t.prefix
}

// Routes builds the toolbar router: the index page plus each panel's
// own routes.
func (t *Toolbar) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(t.requireAccess)

	r.Get("/", t.index)
	for _, p := range t.panels {
		if rp, ok := p.(RouteProvider); ok {
			r.Mount("/"+p.Name(), rp.Routes())
		}
	}
	return r
}

// requireAccess restricts the toolbar to admins. An impersonated
// session passes too: the impersonator needs the toolbar to restore
// their own identity.
func (t *Toolbar) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		session := middleware.SessionFromContext(r.Context())

		if user == nil || (!user.Admin && (session == nil || !session.Impersonated())) {
			t.logger.WarnContext(r.Context(), "toolbar access denied",
				slog.String("path", r.URL.Path))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type panelView struct {
	Name    string
	Title   string
	Nav     template.HTML
	Content template.HTML
}

// index renders every panel on one page.
func (t *Toolbar) index(w http.ResponseWriter, r *http.Request) {
	views := make([]panelView, 0, len(t.panels))
	for _, p := range t.panels {
		views = append(views, panelView{
			Name:    p.Name(),
			Title:   p.Title(),
			Nav:     p.Nav(r),
			Content: p.Content(r),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pages.ExecuteTemplate(w, "index.html", map[string]any{
		"Prefix": t.prefix,
		"Panels": views,
	})
	if err != nil {
		t.logger.ErrorContext(r.Context(), "toolbar render failed",
			slog.String("error", err.Error()))
	}
}
