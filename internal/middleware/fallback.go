package middleware

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"sitekit/internal/infrastructure"
	"sitekit/internal/templates"
)

// dispatchMarker records whether a routed handler ran for this
// request. It separates a 404 raised by a real handler (which must
// pass through untouched) from the router's own "no route matched"
// 404 (which the fallback may rescue).
type dispatchMarker struct {
	viewFound bool
}

type markerContextKey struct{}

// MarkDispatched flags the request as handled by a routed view. Mount
// it inside every routed group so the fallback only rescues requests
// no route matched.
func MarkDispatched(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m, ok := r.Context().Value(markerContextKey{}).(*dispatchMarker); ok {
			m.viewFound = true
		}
		next.ServeHTTP(w, r)
	})
}

// FallbackConfig configures the template fallback responder.
type FallbackConfig struct {
	Store *templates.Store
	// AppendSlash enables the canonical trailing-slash redirect when a
	// directory-style template matches a slashless path.
	AppendSlash bool
	// Prefix is prepended to the request path before deriving
	// candidates, for stores rooted below the URL space.
	Prefix  string
	Logger  *slog.Logger
	Metrics *infrastructure.SiteMetrics
}

// Candidates derives the template names probed for a request path, in
// probe order:
//
//	/      -> index.html
//	/foo   -> foo.html, foo/index.html, foo
//	/foo/  -> foo.html, foo/index.html, foo
func Candidates(path string) []string {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	stem := strings.Trim(path, "/")

	var out []string
	if stem != "" {
		out = append(out, stem+".html")
	}
	out = append(out, strings.TrimLeft(path, "/")+"index.html")
	if stem != "" {
		out = append(out, stem)
	}
	return out
}

// Fallback intercepts framework-level 404 responses and tries to
// resolve a template for the request path. Handler-raised 404s and
// all other statuses stream through untouched.
func Fallback(cfg FallbackConfig) func(next http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "fallback"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			marker := &dispatchMarker{}
			ctx := context.WithValue(r.Context(), markerContextKey{}, marker)
			r = r.WithContext(ctx)

			iw := &notFoundInterceptor{ResponseWriter: w}
			next.ServeHTTP(iw, r)

			if !iw.suppressed {
				return
			}
			if marker.viewFound {
				// A real handler produced this 404; hands off.
				iw.replay()
				return
			}
			if !probe(w, r, cfg, logger) {
				iw.replay()
			}
		})
	}
}

// probe tries the candidate templates in order and writes the first
// hit. It reports whether a response was written; a false return
// means the caller should restore the original 404.
func probe(w http.ResponseWriter, r *http.Request, cfg FallbackConfig, logger *slog.Logger) bool {
	ctx := r.Context()
	path := cfg.Prefix + r.URL.Path
	candidates := Candidates(path)

	for _, name := range candidates {
		body, err := cfg.Store.RenderRequest(r, name, nil)
		switch {
		case errors.Is(err, templates.ErrNotFound), errors.Is(err, templates.ErrIsDirectory):
			continue

		case err != nil:
			// A template exists but did not render. Swallow and
			// restore the original response rather than surface a 500
			// for a page the caller never explicitly asked to render.
			logger.WarnContext(ctx, "fallback render failed",
				slog.String("template", name),
				slog.String("error", err.Error()),
			)
			infrastructure.RecordFallbackLookup(ctx, cfg.Metrics, "miss")
			return false
		}

		if strings.HasSuffix(name, ".html") && !strings.HasSuffix(r.URL.Path, "/") && cfg.AppendSlash {
			// Canonicalize like CommonMiddleware: the template was
			// found under the slash-appended path, so send the client
			// there permanently.
			target := r.URL.Path + "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			logger.InfoContext(ctx, "fallback redirect",
				slog.String("path", r.URL.Path),
				slog.String("target", target),
			)
			infrastructure.RecordFallbackLookup(ctx, cfg.Metrics, "redirect")
			w.Header().Set("Location", target)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusMovedPermanently)
			return true
		}

		logger.InfoContext(ctx, "fallback served",
			slog.String("path", r.URL.Path),
			slog.String("template", name),
		)
		infrastructure.RecordFallbackLookup(ctx, cfg.Metrics, "served")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return true
	}

	logger.DebugContext(ctx, "no fallback template",
		slog.String("path", r.URL.Path),
		slog.Any("candidates", candidates),
	)
	infrastructure.RecordFallbackLookup(ctx, cfg.Metrics, "miss")
	return false
}

// PageHandler exposes the probe as a routable handler, for mounting
// the template tree explicitly instead of as a 404 rescue. Misses are
// delegated to notFound (http.NotFound when nil).
func PageHandler(cfg FallbackConfig, notFound http.HandlerFunc) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "fallback"))
	if notFound == nil {
		notFound = http.NotFound
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !probe(w, r, cfg, logger) {
			notFound(w, r)
		}
	})
}

// notFoundInterceptor buffers a 404 response so the fallback can
// decide whether to replace it. Every other status streams through.
type notFoundInterceptor struct {
	http.ResponseWriter
	wroteHeader bool
	suppressed  bool
	buf         bytes.Buffer
}

// WriteHeader suppresses the first 404 and passes everything else on.
func (w *notFoundInterceptor) WriteHeader(code int) {
	if w.wroteHeader || w.suppressed {
		return
	}
	if code == http.StatusNotFound {
		w.suppressed = true
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

// Write buffers the body while a 404 is suppressed.
func (w *notFoundInterceptor) Write(b []byte) (int, error) {
	if w.suppressed {
		return w.buf.Write(b)
	}
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush passes through unless a 404 is being buffered.
func (w *notFoundInterceptor) Flush() {
	if w.suppressed {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the underlying connection to the caller so websocket
// upgrades work behind the interceptor. A hijacked response is out of
// the fallback's hands.
func (w *notFoundInterceptor) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.wroteHeader = true
	return hj.Hijack()
}

// replay restores the buffered 404 byte for byte.
func (w *notFoundInterceptor) replay() {
	w.ResponseWriter.WriteHeader(http.StatusNotFound)
	if w.buf.Len() > 0 {
		w.ResponseWriter.Write(w.buf.Bytes())
	}
}
