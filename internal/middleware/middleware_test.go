package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitekit/internal/config"
	apperrors "sitekit/internal/errors"
	"sitekit/internal/security"
	"sitekit/internal/services"
	"sitekit/internal/shared/testutil"
	"sitekit/pkg/contracts/events"
)

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsIncomingHeader(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upstream-id", GetRequestID(r.Context()))
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Request-ID", "upstream-id")
	h.ServeHTTP(httptest.NewRecorder(), r)
}

func TestStructuredLoggerRecordsRequestPair(t *testing.T) {
	logger, records := testutil.NewTestLogger(t)
	h := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/pages", nil))

	testutil.AssertLogContains(t, records, slog.LevelInfo, "request started")
	testutil.AssertLogContains(t, records, slog.LevelInfo, "request completed")
	testutil.AssertLogAttr(t, records, "status", int64(http.StatusCreated))
	testutil.AssertNoErrors(t, records)
}

func TestRecovererConvertsPanicTo500(t *testing.T) {
	handler := apperrors.NewErrorHandler(testLogger(), false)
	h := Recoverer(testLogger(), handler)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal Server Error")
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 1, testLogger())
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("preflight must not reach the handler")
		}))

	r := httptest.NewRequest(http.MethodOptions, "/", nil)
	r.Header.Set("Origin", "http://localhost:8080")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
}

type captureRecorder struct {
	events []events.RequestEvent
}

func (c *captureRecorder) Record(e events.RequestEvent) {
	c.events = append(c.events, e)
}

func TestRequestFeed(t *testing.T) {
	rec := &captureRecorder{}
	h := RequestFeed(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/brew", nil))

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.Equal(t, "GET", e.Method)
	assert.Equal(t, "/brew", e.Path)
	assert.Equal(t, http.StatusTeapot, e.Status)
	assert.False(t, e.Time.IsZero())
}

func TestCurrentUser(t *testing.T) {
	users, err := services.NewUserService([]config.UserConfig{
		{Username: "admin", Password: "pw", Admin: true},
	}, testLogger())
	require.NoError(t, err)

	codec, err := security.NewCodec("test-secret-at-least-16-bytes", "s", time.Hour)
	require.NoError(t, err)

	admin, err := users.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)

	var got string
	h := CurrentUser(codec, users, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := UserFromContext(r.Context()); u != nil {
			got = u.Username
		}
	}))

	// Anonymous request: no user on context.
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Empty(t, got)

	// Valid session cookie resolves the user.
	cookie, err := codec.Cookie(security.Session{UserID: admin.ID, IssuedAt: time.Now()})
	require.NoError(t, err)
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "admin", got)
}
