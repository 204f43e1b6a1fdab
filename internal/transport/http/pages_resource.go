package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"sitekit/internal/middleware"
	"sitekit/internal/rest"
	"sitekit/internal/services"
	api "sitekit/pkg/contracts/api/v1"
)

// PagesResource exposes content pages over REST. Reads are public;
// writes require an admin session.
type PagesResource struct {
	pages    *services.PageService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewPagesResource creates the pages resource.
func NewPagesResource(pages *services.PageService, logger *slog.Logger) *PagesResource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PagesResource{
		pages:    pages,
		validate: validator.New(),
		logger:   logger.With(slog.String("resource", "pages")),
	}
}

// Auth allows anonymous access; per-method checks gate the writes.
func (res *PagesResource) Auth(r *http.Request) error { return nil }

// Get returns the page named by ?slug=, or the full list.
func (res *PagesResource) Get(r *http.Request) (any, error) {
	if slug := r.URL.Query().Get("slug"); slug != "" {
		page, err := res.pages.Get(r.Context(), slug)
		if err != nil {
			return nil, res.mapError(err)
		}
		return page, nil
	}
	pages, err := res.pages.List(r.Context())
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// Post creates a page. Admin only.
func (res *PagesResource) Post(r *http.Request) (any, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}

	var req api.PageCreateRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := res.validate.Struct(req); err != nil {
		return nil, rest.FromValidator(err)
	}

	page, err := res.pages.Create(r.Context(), req.Slug, req.Title, req.Body)
	if err != nil {
		return nil, res.mapError(err)
	}
	res.logger.InfoContext(r.Context(), "page created", slog.String("slug", page.Slug))
	return page, nil
}

// Put replaces a page. Admin only.
func (res *PagesResource) Put(r *http.Request) (any, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}

	var req api.PageUpdateRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := res.validate.Struct(req); err != nil {
		return nil, rest.FromValidator(err)
	}

	page, err := res.pages.Update(r.Context(), req.Slug, req.Title, req.Body)
	if err != nil {
		return nil, res.mapError(err)
	}
	res.logger.InfoContext(r.Context(), "page updated", slog.String("slug", page.Slug))
	return page, nil
}

// Delete removes the page named by ?slug=. Admin only.
func (res *PagesResource) Delete(r *http.Request) (any, error) {
	if err := requireAdmin(r); err != nil {
		return nil, err
	}

	slug := r.URL.Query().Get("slug")
	if slug == "" {
		return nil, rest.InvalidValue("missing slug parameter")
	}
	if err := res.pages.Delete(r.Context(), slug); err != nil {
		return nil, res.mapError(err)
	}
	res.logger.InfoContext(r.Context(), "page deleted", slog.String("slug", slug))
	return map[string]string{"slug": slug, "status": "deleted"}, nil
}

// mapError translates service sentinels into the dispatch taxonomy.
func (res *PagesResource) mapError(err error) error {
	switch {
	case errors.Is(err, services.ErrPageNotFound):
		return fmt.Errorf("%w: %w", rest.ErrNotFound, err)
	case errors.Is(err, services.ErrPageExists):
		ve := rest.ValidationError{}
		ve.Add("slug", "a page with this slug already exists")
		return ve
	case errors.Is(err, services.ErrInvalidSlug):
		return rest.InvalidValue(err.Error())
	default:
		return err
	}
}

// requireAdmin gates write operations behind an admin session.
func requireAdmin(r *http.Request) error {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		return rest.PermissionDenied("authentication required")
	}
	if !user.Admin {
		return rest.PermissionDenied("admin privileges required")
	}
	return nil
}
