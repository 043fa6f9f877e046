package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "gastos_auth"
	DefaultTTL = 14 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid session token")

type claims struct {
	UID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens carried in a cookie.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

type Option func(*Sessions)

// WithSecureCookie marks the cookie Secure, for deployments behind TLS.
func WithSecureCookie(secure bool) Option {
	return func(s *Sessions) { s.secure = secure }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewSessions signs with secret. An empty secret is replaced by a random one,
// so sessions then last only as long as the process.
func NewSessions(secret string, opts ...Option) *Sessions {
	key := []byte(secret)
	if len(key) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("auth: read random secret: %v", err))
		}
		key = []byte(hex.EncodeToString(buf))
		slog.Warn("AUTH_SECRET not set, using a random per-process secret")
	}
	s := &Sessions{secret: key, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

func (s *Sessions) Issue(uid int64) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

func (s *Sessions) Parse(token string) (int64, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	if c.UID < 0 {
		return 0, ErrInvalidToken
	}
	return c.UID, nil
}

// SetCookie issues a token for uid and attaches it to the response.
func (s *Sessions) SetCookie(w http.ResponseWriter, uid int64) error {
	token, _, err := s.Issue(uid)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest returns the uid of a valid session cookie.
func (s *Sessions) FromRequest(r *http.Request) (int64, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	uid, err := s.Parse(c.Value)
	if err != nil {
		return 0, false
	}
	return uid, true
}
