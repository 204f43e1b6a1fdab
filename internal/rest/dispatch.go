// Package rest adapts plain resource values into HTTP handlers. A
// resource opts into HTTP methods by implementing the per-method
// capability interfaces below; dispatch authenticates the request,
// calls the matching method and translates the package's error
// taxonomy into status codes with JSON bodies.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"sitekit/internal/infrastructure"
)

// Per-method capability interfaces. Implementing one makes the
// corresponding HTTP method dispatchable and advertises it in Allow.
type (
	// Getter handles GET requests.
	Getter interface {
		Get(r *http.Request) (any, error)
	}
	// Poster handles POST requests.
	Poster interface {
		Post(r *http.Request) (any, error)
	}
	// Putter handles PUT requests.
	Putter interface {
		Put(r *http.Request) (any, error)
	}
	// Patcher handles PATCH requests.
	Patcher interface {
		Patch(r *http.Request) (any, error)
	}
	// Deleter handles DELETE requests.
	Deleter interface {
		Delete(r *http.Request) (any, error)
	}
	// Header handles HEAD requests.
	Header interface {
		Head(r *http.Request) (any, error)
	}
)

// Authenticator must be implemented by every resource. There is no
// default: dispatch panics when it is missing, so an unauthenticated
// endpoint is an explicit decision, never an oversight.
type Authenticator interface {
	Auth(r *http.Request) error
}

// Cookier is an optional payload capability: returned cookies are set
// on the response before the body is written.
type Cookier interface {
	Cookies() []*http.Cookie
}

// methodOrder fixes the Allow header ordering.
var methodOrder = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
}

// FatalHandler receives errors outside the dispatch taxonomy. The
// application installs its central RFC 7807 handler here.
type FatalHandler func(w http.ResponseWriter, r *http.Request, err error)

// Handler dispatches requests to a resource.
type Handler struct {
	resource any
	logger   *slog.Logger
	fatal    FatalHandler
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the dispatch logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithFatalHandler sets the handler for errors outside the taxonomy.
func WithFatalHandler(fatal FatalHandler) Option {
	return func(h *Handler) { h.fatal = fatal }
}

// Resource adapts a resource value into an http.Handler.
func Resource(resource any, opts ...Option) *Handler {
	h := &Handler{
		resource: resource,
		logger:   infrastructure.GetLogger().With(slog.String("component", "rest")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.resource.(Authenticator)
	if !ok {
		panic(fmt.Sprintf("rest: resource %T does not implement Authenticator; override Auth even for open endpoints", h.resource))
	}

	if err := auth.Auth(r); err != nil {
		h.respondError(w, r, err)
		return
	}

	if r.Method == http.MethodOptions {
		h.options(w, r)
		return
	}

	call, ok := h.methodFunc(r.Method)
	if !ok {
		h.methodNotAllowed(w, r)
		return
	}

	payload, err := call(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if c, ok := payload.(Cookier); ok {
		for _, cookie := range c.Cookies() {
			http.SetCookie(w, cookie)
		}
	}
	h.respond(w, r, http.StatusOK, payload)
}

// respondError maps the dispatch error taxonomy to responses. Errors
// outside the taxonomy are fatal and go to the application handler.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  ValidationError
		perr  *PermissionError
		iverr *InvalidValueError
	)

	switch {
	case errors.As(err, &verr):
		h.respond(w, r, http.StatusConflict, verr)

	case errors.Is(err, ErrNotFound):
		h.respond(w, r, http.StatusNotFound, nil)

	case errors.As(err, &perr):
		h.respond(w, r, http.StatusForbidden, perr.Message)

	case errors.As(err, &iverr):
		h.respond(w, r, http.StatusBadRequest, iverr.Message)

	default:
		h.logger.ErrorContext(r.Context(), "unhandled resource error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		if h.fatal != nil {
			h.fatal(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// respond writes a JSON response for any payload, converting through
// Serialize. A nil payload produces the body "null".
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, payload any) {
	body, err := Serialize(payload)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "response serialization failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		if h.fatal != nil {
			h.fatal(w, r, err)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// options answers OPTIONS with the methods the resource implements in
// the Allow header and an empty body.
func (h *Handler) options(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", strings.Join(h.allowed(), ","))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

// methodNotAllowed answers with 405, the Allow header and a JSON
// content type.
func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", strings.Join(h.allowed(), ","))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// methodFunc resolves the handler for an HTTP method through the
// capability interfaces.
func (h *Handler) methodFunc(method string) (func(*http.Request) (any, error), bool) {
	switch method {
	case http.MethodGet:
		if v, ok := h.resource.(Getter); ok {
			return v.Get, true
		}
	case http.MethodPost:
		if v, ok := h.resource.(Poster); ok {
			return v.Post, true
		}
	case http.MethodPut:
		if v, ok := h.resource.(Putter); ok {
			return v.Put, true
		}
	case http.MethodPatch:
		if v, ok := h.resource.(Patcher); ok {
			return v.Patch, true
		}
	case http.MethodDelete:
		if v, ok := h.resource.(Deleter); ok {
			return v.Delete, true
		}
	case http.MethodHead:
		if v, ok := h.resource.(Header); ok {
			return v.Head, true
		}
	}
	return nil, false
}

// allowed enumerates the implemented methods in canonical order.
func (h *Handler) allowed() []string {
	out := make([]string, 0, len(methodOrder))
	for _, m := range methodOrder {
		if _, ok := h.methodFunc(m); ok {
			out = append(out, m)
		}
	}
	return out
}

// DecodeJSON reads a JSON request body into dst. Failures come back
// as InvalidValueError so dispatch turns them into a 400.
func DecodeJSON(r *http.Request, dst any) error {
	ct := r.Header.Get("Content-Type")
	if ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return InvalidValuef("expected application/json content type, got %q", ct)
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return &InvalidValueError{Message: "failed to read request body", Cause: err}
	}
	if len(body) == 0 {
		return InvalidValue("empty request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &InvalidValueError{Message: "malformed JSON request body", Cause: err}
	}
	return nil
}
