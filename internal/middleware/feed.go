package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"sitekit/pkg/contracts/events"
)

// RequestRecorder receives one event per handled request. The
// toolbar's requests panel implements it; anything else that wants
// the stream can too.
type RequestRecorder interface {
	Record(e events.RequestEvent)
}

// RequestFeed emits a RequestEvent for every completed request. Mount
// it after RequestID so events carry the request's ID.
func RequestFeed(recorder RequestRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			recorder.Record(events.RequestEvent{
				ID:         GetRequestID(r.Context()),
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     ww.Status(),
				Duration:   time.Since(start),
				RemoteAddr: GetRealIP(r),
				Time:       start,
			})
		})
	}
}
