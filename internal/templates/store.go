// Package templates implements the template store backing the page
// fallback and the toolbar. Templates are plain html/template files
// under a site directory, addressed by their path relative to it.
package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"sitekit/internal/infrastructure"
)

// Sentinel errors raised while resolving a template name. Callers use
// errors.Is to tell a recoverable miss from a real render failure.
var (
	// ErrNotFound means no file exists for the requested name.
	ErrNotFound = errors.New("template not found")
	// ErrIsDirectory means the name resolved to a directory instead of
	// a file. Some backends surface this instead of a plain not-found,
	// so probing code treats the two identically.
	ErrIsDirectory = errors.New("template path is a directory")
)

// URLResolver turns a route name into a URL path. It is passed in
// explicitly at construction so templates never reach for ambient
// routing state.
type URLResolver interface {
	Reverse(name string, args ...string) (string, error)
}

// ResolverFunc adapts a function to the URLResolver interface.
type ResolverFunc func(name string, args ...string) (string, error)

// Reverse implements URLResolver.
func (f ResolverFunc) Reverse(name string, args ...string) (string, error) {
	return f(name, args...)
}

// Decorator mutates the render data before template execution. The
// forms package registers one to annotate widgets that carry errors.
type Decorator func(data map[string]any)

// Site holds the site values injected into every render.
type Site struct {
	Name    string
	BaseURL string
}

// Store loads, caches and renders templates from a site directory.
type Store struct {
	fsys       fs.FS
	site       Site
	resolver   URLResolver
	logger     *slog.Logger
	metrics    *infrastructure.SiteMetrics
	decorators []Decorator

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// Option configures a Store.
type Option func(*Store)

// WithResolver sets the URL resolver exposed to templates as the
// "url" function.
func WithResolver(r URLResolver) Option {
	return func(s *Store) { s.resolver = r }
}

// WithMetrics records render durations and reload counts.
func WithMetrics(m *infrastructure.SiteMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithDecorator registers a render-data decorator. Decorators run in
// registration order on every render.
func WithDecorator(d Decorator) Option {
	return func(s *Store) { s.decorators = append(s.decorators, d) }
}

// NewStore creates a template store over the given filesystem.
func NewStore(fsys fs.FS, site Site, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	s := &Store{
		fsys:   fsys,
		site:   site,
		logger: logger.With(slog.String("component", "templates")),
		cache:  make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddDecorator registers a render-data decorator after construction.
func (s *Store) AddDecorator(d Decorator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decorators = append(s.decorators, d)
}

// Lookup resolves a template name without rendering it. It returns
// ErrNotFound or ErrIsDirectory (wrapped with the name) when the name
// does not map to a regular file.
func (s *Store) Lookup(name string) (*template.Template, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}

	s.mu.RLock()
	tmpl, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	info, err := fs.Stat(s.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q: %w", name, ErrIsDirectory)
	}

	raw, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", name, err)
	}

	tmpl, err = template.New(name).Funcs(s.funcs()).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = tmpl
	s.mu.Unlock()

	return tmpl, nil
}

// Render resolves and executes a template into a buffer, so a failing
// execution never leaks partial output to the client. The data map is
// enriched with Site values and run through the registered decorators
// first.
func (s *Store) Render(ctx context.Context, name string, data map[string]any) ([]byte, error) {
	start := time.Now()

	tmpl, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}

	if data == nil {
		data = make(map[string]any)
	}
	data["Site"] = s.site

	s.mu.RLock()
	decorators := s.decorators
	s.mu.RUnlock()
	for _, d := range decorators {
		d(data)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	infrastructure.RecordTemplateRender(ctx, s.metrics, name, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("execute template %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

// RenderRequest renders a template with the request's path and method
// available to it under the "Request" key.
func (s *Store) RenderRequest(r *http.Request, name string, extra map[string]any) ([]byte, error) {
	data := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		data[k] = v
	}
	data["Request"] = map[string]any{
		"Path":   r.URL.Path,
		"Method": r.Method,
	}
	return s.Render(r.Context(), name, data)
}

// Invalidate drops every cached template. The next Lookup re-reads
// from disk.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]*template.Template)
	s.mu.Unlock()
}

// funcs returns the function map exposed to every template.
func (s *Store) funcs() template.FuncMap {
	return template.FuncMap{
		"url": func(name string, args ...string) (string, error) {
			if s.resolver == nil {
				return "", fmt.Errorf("no URL resolver configured")
			}
			return s.resolver.Reverse(name, args...)
		},
	}
}
