package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitekit/internal/security"
)

func TestPagesListEmpty(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, "GET", "/pages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestPagesCreateRequiresAdmin(t *testing.T) {
	f := newAPIFixture(t)
	body := `{"slug":"about","title":"About","body":"<p>hi</p>"}`

	w := f.do(t, "POST", "/pages", body)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, `"authentication required"`, w.Body.String())
}

func TestPagesCreateAndGet(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.adminCookie(t)

	w := f.do(t, "POST", "/pages", `{"slug":"about","title":"About","body":"<p>hi</p>"}`, admin)
	require.Equal(t, http.StatusOK, w.Code)

	created := decodeBody[map[string]any](t, w)
	want := map[string]any{"slug": "about", "title": "About"}
	got := map[string]any{"slug": created["slug"], "title": created["title"]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("created page mismatch (-want +got):\n%s", diff)
	}

	w = f.do(t, "GET", "/pages?slug=about", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeBody[map[string]any](t, w)
	assert.Equal(t, "About", page["title"])
}

func TestPagesCreateValidation(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.adminCookie(t)

	w := f.do(t, "POST", "/pages", `{"slug":"about","title":"","body":""}`, admin)
	require.Equal(t, http.StatusConflict, w.Code)

	fields := decodeBody[map[string][]string](t, w)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "body")
}

func TestPagesCreateDuplicateSlug(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.adminCookie(t)
	body := `{"slug":"about","title":"About","body":"x"}`

	require.Equal(t, http.StatusOK, f.do(t, "POST", "/pages", body, admin).Code)

	w := f.do(t, "POST", "/pages", body, admin)
	require.Equal(t, http.StatusConflict, w.Code)
	fields := decodeBody[map[string][]string](t, w)
	assert.Contains(t, fields, "slug")
}

func TestPagesInvalidSlug(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.adminCookie(t)

	w := f.do(t, "POST", "/pages", `{"slug":"../etc","title":"T","body":"x"}`, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPagesGetMissing(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, "GET", "/pages?slug=nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestPagesUpdateAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.adminCookie(t)

	require.Equal(t, http.StatusOK,
		f.do(t, "POST", "/pages", `{"slug":"about","title":"About","body":"x"}`, admin).Code)

	w := f.do(t, "PUT", "/pages", `{"slug":"about","title":"About Us","body":"y"}`, admin)
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeBody[map[string]any](t, w)
	assert.Equal(t, "About Us", page["title"])

	w = f.do(t, "DELETE", "/pages?slug=about", "", admin)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/pages?slug=about", "").Code)
}

func TestPagesDeleteMissingSlugParam(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.adminCookie(t)

	w := f.do(t, "DELETE", "/pages", "", admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPagesNonAdminWrite(t *testing.T) {
	f := newAPIFixture(t)

	bob, err := f.users.Authenticate(context.Background(), "bob", "pw")
	require.NoError(t, err)
	cookie, err := f.codec.Cookie(security.Session{UserID: bob.ID, IssuedAt: time.Now()})
	require.NoError(t, err)

	w := f.do(t, "POST", "/pages", `{"slug":"about","title":"About","body":"x"}`, cookie)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, `"admin privileges required"`, w.Body.String())
}
