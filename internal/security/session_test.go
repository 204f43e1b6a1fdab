package security

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-16-bytes"

func testCodec(t *testing.T, ttl time.Duration) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, "sitekit_session", ttl)
	require.NoError(t, err)
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := testCodec(t, time.Hour)

	in := Session{UserID: "u1", ImpersonatorID: "admin", IssuedAt: time.Now()}
	token, err := codec.Seal(in)
	require.NoError(t, err)

	out, err := codec.Open(token)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.ImpersonatorID, out.ImpersonatorID)
	assert.True(t, out.Impersonated())
}

func TestCodecRejectsShortSecret(t *testing.T) {
	_, err := NewCodec("short", "c", time.Hour)
	assert.Error(t, err)
}

func TestCodecRejectsTamperedToken(t *testing.T) {
	codec := testCodec(t, time.Hour)

	token, err := codec.Seal(Session{UserID: "u1", IssuedAt: time.Now()})
	require.NoError(t, err)

	tampered := []byte(token)
	tampered[len(tampered)-1] ^= 'x'
	_, err = codec.Open(string(tampered))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestCodecRejectsGarbage(t *testing.T) {
	codec := testCodec(t, time.Hour)
	_, err := codec.Open("not a token!!!")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestCodecExpiry(t *testing.T) {
	codec := testCodec(t, time.Minute)

	token, err := codec.Seal(Session{UserID: "u1", IssuedAt: time.Now().Add(-2 * time.Minute)})
	require.NoError(t, err)

	_, err = codec.Open(token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestCodecCookies(t *testing.T) {
	codec := testCodec(t, time.Hour)

	cookie, err := codec.Cookie(Session{UserID: "u1", IssuedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "sitekit_session", cookie.Name)
	assert.True(t, cookie.HttpOnly)

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(cookie)
	s, err := codec.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)

	clear := codec.ClearCookie()
	assert.Equal(t, -1, clear.MaxAge)
}

func TestFromRequestWithoutCookie(t *testing.T) {
	codec := testCodec(t, time.Hour)
	_, err := codec.FromRequest(httptest.NewRequest("GET", "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}
