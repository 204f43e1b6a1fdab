package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"sitekit/internal/config"
	"sitekit/internal/middleware"
	"sitekit/internal/rest"
	"sitekit/internal/security"
	"sitekit/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// apiFixture wires the resources behind the session middleware, the
// way the application router mounts them.
type apiFixture struct {
	users    *services.UserService
	codec    *security.Codec
	pages    *services.PageService
	contacts *services.ContactService
	handler  http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	users, err := services.NewUserService([]config.UserConfig{
		{Username: "admin", Name: "Admin", Password: "pw", Admin: true},
		{Username: "bob", Name: "Bob", Password: "pw"},
	}, testLogger())
	require.NoError(t, err)

	codec, err := security.NewCodec("test-secret-at-least-16-bytes", "s", time.Hour)
	require.NoError(t, err)

	pages := services.NewPageService(t.TempDir(), testLogger())
	contacts := services.NewContactService(testLogger())

	r := chi.NewRouter()
	r.Use(middleware.CurrentUser(codec, users, testLogger()))
	r.Handle("/pages", rest.Resource(NewPagesResource(pages, testLogger()), rest.WithLogger(testLogger())))
	r.Handle("/contact", rest.Resource(NewContactResource(contacts, testLogger()), rest.WithLogger(testLogger())))
	r.Handle("/auth", rest.Resource(NewAuthResource(users, codec, testLogger()), rest.WithLogger(testLogger())))

	return &apiFixture{users: users, codec: codec, pages: pages, contacts: contacts, handler: r}
}

func (f *apiFixture) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()
	admin, err := f.users.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	cookie, err := f.codec.Cookie(security.Session{UserID: admin.ID, IssuedAt: time.Now()})
	require.NoError(t, err)
	return cookie
}

// do runs one request through the fixture router.
func (f *apiFixture) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
