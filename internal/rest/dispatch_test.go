package rest

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openResource implements GET and POST with a no-op auth hook.
type openResource struct {
	get  func(r *http.Request) (any, error)
	post func(r *http.Request) (any, error)
}

func (res *openResource) Auth(r *http.Request) error { return nil }

func (res *openResource) Get(r *http.Request) (any, error) {
	if res.get == nil {
		return nil, nil
	}
	return res.get(r)
}

func (res *openResource) Post(r *http.Request) (any, error) {
	if res.post == nil {
		return nil, nil
	}
	return res.post(r)
}

// noAuthResource implements a method but not Authenticator.
type noAuthResource struct{}

func (noAuthResource) Get(r *http.Request) (any, error) { return nil, nil }

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestDispatchErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "not found sentinel",
			err:        ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   "null",
		},
		{
			name:       "wrapped not found",
			err:        NotFoundf("page %q", "about"),
			wantStatus: http.StatusNotFound,
			wantBody:   "null",
		},
		{
			name:       "invalid value",
			err:        InvalidValue("budget must be positive"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `"budget must be positive"`,
		},
		{
			name:       "permission denied",
			err:        PermissionDenied("admin only"),
			wantStatus: http.StatusForbidden,
			wantBody:   `"admin only"`,
		},
		{
			name:       "validation",
			err:        ValidationError{"email": {"must be a valid email address"}},
			wantStatus: http.StatusConflict,
			wantBody:   `{"email":["must be a valid email address"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Resource(&openResource{
				get: func(r *http.Request) (any, error) { return nil, tt.err },
			}, WithLogger(testLogger()))

			w := do(t, h, http.MethodGet, "/thing", "")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestDispatchFatalErrorsPropagate(t *testing.T) {
	boom := errors.New("database exploded")
	var got error
	h := Resource(&openResource{
		get: func(r *http.Request) (any, error) { return nil, boom },
	}, WithLogger(testLogger()), WithFatalHandler(func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusInternalServerError)
	}))

	w := do(t, h, http.MethodGet, "/thing", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.ErrorIs(t, got, boom)
}

func TestDispatchAuthFailureIsMapped(t *testing.T) {
	res := &openResource{}
	h := Resource(&authFailingResource{inner: res}, WithLogger(testLogger()))

	w := do(t, h, http.MethodGet, "/thing", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `"no anonymous access"`, w.Body.String())
}

type authFailingResource struct {
	inner *openResource
}

func (res *authFailingResource) Auth(r *http.Request) error {
	return PermissionDenied("no anonymous access")
}

func (res *authFailingResource) Get(r *http.Request) (any, error) { return res.inner.Get(r) }

func TestDispatchPanicsWithoutAuthenticator(t *testing.T) {
	h := Resource(noAuthResource{}, WithLogger(testLogger()))
	assert.Panics(t, func() {
		do(t, h, http.MethodGet, "/thing", "")
	})
}

func TestDispatchOptionsListsImplementedMethods(t *testing.T) {
	h := Resource(&openResource{}, WithLogger(testLogger()))

	w := do(t, h, http.MethodOptions, "/thing", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "GET,POST", w.Header().Get("Allow"))
	assert.Empty(t, w.Body.String())
}

func TestDispatchMethodNotAllowed(t *testing.T) {
	h := Resource(&openResource{}, WithLogger(testLogger()))

	w := do(t, h, http.MethodDelete, "/thing", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET,POST", w.Header().Get("Allow"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

type pricedItem struct {
	Name  string
	Price decimal.Decimal
}

func (p pricedItem) Payload() any {
	return map[string]any{"name": p.Name, "price": p.Price}
}

func TestDispatchSerializesPayloaders(t *testing.T) {
	item := pricedItem{Name: "widget", Price: decimal.RequireFromString("19.90")}
	h := Resource(&openResource{
		get: func(r *http.Request) (any, error) { return item, nil },
	}, WithLogger(testLogger()))

	w := do(t, h, http.MethodGet, "/thing", "")
	require.Equal(t, http.StatusOK, w.Code)
	// Decimals must serialize as strings, never floats.
	assert.JSONEq(t, `{"name":"widget","price":"19.9"}`, w.Body.String())
}

type cookiePayload struct {
	cookie *http.Cookie
}

func (p cookiePayload) Payload() any            { return map[string]any{"ok": true} }
func (p cookiePayload) Cookies() []*http.Cookie { return []*http.Cookie{p.cookie} }

func TestDispatchSetsPayloadCookies(t *testing.T) {
	h := Resource(&openResource{
		post: func(r *http.Request) (any, error) {
			return cookiePayload{cookie: &http.Cookie{Name: "session", Value: "abc"}}, nil
		},
	}, WithLogger(testLogger()))

	w := do(t, h, http.MethodPost, "/login", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")
		var p payload
		require.NoError(t, DecodeJSON(r, &p))
		assert.Equal(t, "ok", p.Name)
	})

	t.Run("wrong content type", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "text/plain")
		var p payload
		err := DecodeJSON(r, &p)
		var iverr *InvalidValueError
		require.ErrorAs(t, err, &iverr)
	})

	t.Run("malformed body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		r.Header.Set("Content-Type", "application/json")
		var p payload
		var iverr *InvalidValueError
		require.ErrorAs(t, DecodeJSON(r, &p), &iverr)
	})

	t.Run("empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		var p payload
		var iverr *InvalidValueError
		require.ErrorAs(t, DecodeJSON(r, &p), &iverr)
	})
}
