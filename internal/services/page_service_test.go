package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPageLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewPageService(t.TempDir(), testLogger())

	page, err := svc.Create(ctx, "about", "About Us", "<p>hello</p>")
	require.NoError(t, err)
	assert.Equal(t, "about", page.Slug)
	assert.Equal(t, "About Us", page.Title)
	assert.Contains(t, page.Body, "<p>hello</p>")

	// Duplicate create conflicts.
	_, err = svc.Create(ctx, "about", "Again", "x")
	assert.ErrorIs(t, err, ErrPageExists)

	// Update replaces the body.
	page, err = svc.Update(ctx, "about", "About", "<p>updated</p>")
	require.NoError(t, err)
	assert.Contains(t, page.Body, "updated")

	pages, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	require.NoError(t, svc.Delete(ctx, "about"))
	_, err = svc.Get(ctx, "about")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestPageSlugValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewPageService(t.TempDir(), testLogger())

	bad := []string{"", "../etc", "a/b", "UPPER", ".hidden", "dot.dot", "-lead", "trail-"}
	for _, slug := range bad {
		_, err := svc.Create(ctx, slug, "t", "b")
		assert.ErrorIs(t, err, ErrInvalidSlug, "slug %q", slug)
	}

	_, err := svc.Create(ctx, "a-valid-slug9", "t", "b")
	assert.NoError(t, err)
}

func TestPageBodyIsSanitized(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc := NewPageService(dir, testLogger())

	_, err := svc.Create(ctx, "evil", "t", `<p>ok</p><script>alert(1)</script>`)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "evil.html"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<p>ok</p>")
	assert.NotContains(t, string(raw), "<script>")
}

func TestPageUpdateMissing(t *testing.T) {
	svc := NewPageService(t.TempDir(), testLogger())
	_, err := svc.Update(context.Background(), "nope", "t", "b")
	assert.True(t, errors.Is(err, ErrPageNotFound))
}

func TestPageListSkipsForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc := NewPageService(dir, testLogger())

	_, err := svc.Create(ctx, "real", "t", "b")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	pages, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "real", pages[0].Slug)
}
