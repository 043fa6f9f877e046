package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Produced by the Node server's scryptSync with the default parameters.
const legacyHash = "scrypt$MDEyMzQ1Njc4OWFiY2RlZg==$qEx97dtws9n3uCM6Vx5ucioDRm/YZML6L/OeyCZUZG83D275w94aqUW9r8zOyqufLp1fP/mas3SNcPCZH9q98A=="

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "scrypt$"))
	assert.Len(t, strings.Split(hash, "$"), 3)
	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("correct horse!", hash))

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ")
}

func TestVerifyPassword_LegacyHash(t *testing.T) {
	assert.True(t, VerifyPassword("hunter2", legacyHash))
	assert.False(t, VerifyPassword("hunter3", legacyHash))
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, stored := range []string{
		"",
		"plain",
		"bcrypt$abc$def",
		"scrypt$!!!$abc",
		"scrypt$MDEy$",
		"scrypt$a$b$c",
	} {
		assert.False(t, VerifyPassword("hunter2", stored), stored)
	}
}

func TestSessions_RoundTrip(t *testing.T) {
	s := NewSessions("secret")

	for _, uid := range []int64{0, 1, 42} {
		token, exp, err := s.Issue(uid)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(DefaultTTL), exp, time.Minute)

		got, err := s.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, uid, got)
	}
}

func TestSessions_RejectsForeignAndExpiredTokens(t *testing.T) {
	s := NewSessions("secret")
	token, _, err := s.Issue(7)
	require.NoError(t, err)

	_, err = NewSessions("other").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	s.now = func() time.Time { return time.Now().Add(DefaultTTL + time.Hour) }
	_, err = s.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessions_RandomSecret(t *testing.T) {
	a := NewSessions("")
	b := NewSessions("")
	token, _, err := a.Issue(3)
	require.NoError(t, err)

	uid, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), uid)

	_, err = b.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessions_Cookie(t *testing.T) {
	s := NewSessions("secret")
	rec := httptest.NewRecorder()
	require.NoError(t, s.SetCookie(rec, 5))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 14*24*60*60, c.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(c)
	uid, ok := s.FromRequest(req)
	assert.True(t, ok)
	assert.Equal(t, int64(5), uid)

	_, ok = s.FromRequest(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.False(t, ok)

	cleared := httptest.NewRecorder()
	s.ClearCookie(cleared)
	header := cleared.Header().Get("Set-Cookie")
	assert.Contains(t, header, CookieName+"=;")
	assert.Contains(t, header, "Max-Age=0")
}
