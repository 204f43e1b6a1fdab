package templates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":     {Data: []byte("<h1>{{.Site.Name}}</h1>")},
		"foo.html":       {Data: []byte("foo page")},
		"foo/index.html": {Data: []byte("foo index")},
		"bare":           {Data: []byte("no extension")},
		"broken.html":    {Data: []byte("{{.Site.NoSuchField}}")},
		"docs/guide":     {Data: []byte("guide")},
	}
}

func TestStoreRender(t *testing.T) {
	store := NewStore(testFS(), Site{Name: "sitekit"}, testLogger())

	body, err := store.Render(context.Background(), "index.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "<h1>sitekit</h1>", string(body))
}

func TestStoreErrorClassification(t *testing.T) {
	store := NewStore(testFS(), Site{}, testLogger())

	tests := []struct {
		name     string
		template string
		wantErr  error
	}{
		{name: "missing file", template: "nope.html", wantErr: ErrNotFound},
		{name: "directory", template: "foo", wantErr: ErrIsDirectory},
		{name: "nested directory", template: "docs", wantErr: ErrIsDirectory},
		{name: "invalid path", template: "../escape", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Render(context.Background(), tt.template, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestStoreRendersFileWithoutExtension(t *testing.T) {
	store := NewStore(testFS(), Site{}, testLogger())

	body, err := store.Render(context.Background(), "bare", nil)
	require.NoError(t, err)
	assert.Equal(t, "no extension", string(body))
}

func TestStoreExecutionErrorIsNotAMiss(t *testing.T) {
	store := NewStore(testFS(), Site{}, testLogger())

	_, err := store.Render(context.Background(), "broken.html", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrIsDirectory))
}

// html/template resolves a missing map key chain to empty output
// rather than failing, so such a template renders successfully with a
// hole in it.
func TestStoreMissingMapKeyRendersEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"page.html": {Data: []byte("[{{.Missing.Deep}}]")},
	}
	store := NewStore(fsys, Site{}, testLogger())

	body, err := store.Render(context.Background(), "page.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestStoreDecorators(t *testing.T) {
	fsys := fstest.MapFS{
		"page.html": {Data: []byte("{{.Extra}}")},
	}
	store := NewStore(fsys, Site{}, testLogger(), WithDecorator(func(data map[string]any) {
		data["Extra"] = "decorated"
	}))

	body, err := store.Render(context.Background(), "page.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "decorated", string(body))
}

func TestStoreURLFunc(t *testing.T) {
	fsys := fstest.MapFS{
		"nav.html": {Data: []byte(`<a href="{{url "pages" "about"}}">about</a>`)},
	}
	resolver := ResolverFunc(func(name string, args ...string) (string, error) {
		require.Equal(t, "pages", name)
		require.Equal(t, []string{"about"}, args)
		return "/pages/about", nil
	})
	store := NewStore(fsys, Site{}, testLogger(), WithResolver(resolver))

	body, err := store.Render(context.Background(), "nav.html", nil)
	require.NoError(t, err)
	assert.Contains(t, string(body), `href="/pages/about"`)
}

func TestStoreRenderRequest(t *testing.T) {
	fsys := fstest.MapFS{
		"echo.html": {Data: []byte("{{.Request.Method}} {{.Request.Path}}")},
	}
	store := NewStore(fsys, Site{}, testLogger())

	r := httptest.NewRequest("GET", "/echo", nil)
	body, err := store.RenderRequest(r, "echo.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "GET /echo", string(body))
}

func TestStoreInvalidateDropsCache(t *testing.T) {
	fsys := fstest.MapFS{
		"page.html": {Data: []byte("v1")},
	}
	store := NewStore(fsys, Site{}, testLogger())

	body, err := store.Render(context.Background(), "page.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(body))

	fsys["page.html"] = &fstest.MapFile{Data: []byte("v2")}

	// Still cached.
	body, err = store.Render(context.Background(), "page.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(body))

	store.Invalidate()

	body, err = store.Render(context.Background(), "page.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(body))
}
