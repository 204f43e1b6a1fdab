package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func handle(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	h := NewErrorHandler(testLogger(), false)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest("GET", "/things", nil), err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandleErrorAppErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", NewAppError(ErrTypeValidation, "bad field", nil), http.StatusBadRequest, TypeValidation},
		{"not found", NewAppError(ErrTypeNotFound, "no such page", nil), http.StatusNotFound, TypeNotFound},
		{"permission", NewAppError(ErrTypePermission, "nope", nil), http.StatusForbidden, TypeForbidden},
		{"session", NewAppError(ErrTypeSession, "expired", nil), http.StatusUnauthorized, TypeSessionInvalid},
		{"template", NewAppError(ErrTypeTemplate, "render failed", nil), http.StatusInternalServerError, TypeTemplateRender},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := handle(t, tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestHandleErrorWrappedAppError(t *testing.T) {
	err := fmt.Errorf("loading page: %w", NewAppError(ErrTypeNotFound, "gone", nil))

	w, body := handle(t, err)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "gone", body["detail"])
}

func TestHandleErrorContextCancellation(t *testing.T) {
	w, body := handle(t, context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, TypeTimeout, body["type"])
}

func TestHandleErrorIncludesStackWhenEnabled(t *testing.T) {
	h := NewErrorHandler(testLogger(), true)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest("GET", "/", nil), fmt.Errorf("boom"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "stack")
}

func TestHandlePanic(t *testing.T) {
	h := NewErrorHandler(testLogger(), false)

	w := httptest.NewRecorder()
	h.HandlePanic(w, httptest.NewRequest("GET", "/", nil), "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), TypeInternal)
}

// capturingTransport collects events instead of sending them.
type capturingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (tr *capturingTransport) Configure(sentry.ClientOptions) {}

func (tr *capturingTransport) SendEvent(event *sentry.Event) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, event)
}

func (tr *capturingTransport) Flush(time.Duration) bool { return true }

func TestHandlePanicReportsToSentry(t *testing.T) {
	transport := &capturingTransport{}
	require.NoError(t, sentry.Init(sentry.ClientOptions{
		Dsn:       "https://key@example.invalid/1",
		Transport: transport,
	}))
	t.Cleanup(func() {
		sentry.CurrentHub().BindClient(nil)
	})

	h := NewErrorHandler(testLogger(), false)
	w := httptest.NewRecorder()
	h.HandlePanic(w, httptest.NewRequest("GET", "/", nil), "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.events, 1)
}

func TestAppErrorContext(t *testing.T) {
	err := NewAppError(ErrTypeStorage, "write failed", fmt.Errorf("disk full")).
		WithContext("slug", "about")

	assert.Contains(t, err.Error(), "STORAGE")
	assert.Contains(t, err.Error(), "disk full")

	_, body := handle(t, err)
	assert.Equal(t, "about", body["slug"])
}
