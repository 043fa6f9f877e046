package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/auth"
	"gastos/internal/game"
	applog "gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/storage"
)

const testSecret = "test-secret-0123456789"

func newTestServer(t *testing.T, authPerMinute int) *Server {
	t.Helper()
	store := storage.NewMemoryStore()
	srv, err := NewServer(":0", Deps{
		Store:                 store,
		Months:                services.NewMonthService(store, store),
		Accounts:              services.NewAccountService(store, "hunter2"),
		Games:                 game.NewService(game.NewMemoryStore(), store),
		Sessions:              auth.NewSessions(testSecret),
		Logger:                applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard}),
		AuthRequestsPerMinute: authPerMinute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.CookieName)
	return nil
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), "body: %s", rr.Body.String())
}

func signup(t *testing.T, srv *Server, email string) *http.Cookie {
	t.Helper()
	rr := do(srv, http.MethodPost, "/api/signup", `{"email":"`+email+`","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return sessionCookie(t, rr)
}

func TestSignupLoginAndMe(t *testing.T) {
	srv := newTestServer(t, 100)

	rr := do(srv, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":false}`, rr.Body.String())

	cookie := signup(t, srv, "ana@example.com")

	rr = do(srv, http.MethodGet, "/api/me", "", cookie)
	assert.JSONEq(t, `{"ok":true,"uid":1}`, rr.Body.String())

	rr = do(srv, http.MethodPost, "/api/signup", `{"email":"ana@example.com","password":"other"}`, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"email_taken"}`, rr.Body.String())

	rr = do(srv, http.MethodPost, "/api/signup", `{"email":"","password":"pw"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(srv, http.MethodPost, "/api/login", `{"email":"ana@example.com","password":"pw"}`, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
	sessionCookie(t, rr)

	rr = do(srv, http.MethodPost, "/api/login", `{"email":"ana@example.com","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"invalid_credentials"}`, rr.Body.String())
}

func TestLegacyLogin(t *testing.T) {
	srv := newTestServer(t, 100)

	rr := do(srv, http.MethodPost, "/api/login", `{"password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"invalid_password"}`, rr.Body.String())

	rr = do(srv, http.MethodPost, "/api/login", `{"password":"hunter2"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true,"legacy":true}`, rr.Body.String())

	rr = do(srv, http.MethodGet, "/api/me", "", sessionCookie(t, rr))
	assert.JSONEq(t, `{"ok":true,"uid":0}`, rr.Body.String())
}

func TestLogoutClearsCookie(t *testing.T) {
	srv := newTestServer(t, 100)
	rr := do(srv, http.MethodPost, "/api/logout", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	c := sessionCookie(t, rr)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}

func TestAPIRequiresSession(t *testing.T) {
	srv := newTestServer(t, 100)

	for _, path := range []string{"/api/data", "/api/export", "/api/template", "/api/game/best", "/api/unknown"} {
		rr := do(srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.JSONEq(t, `{"error":"unauthorized"}`, rr.Body.String(), path)
	}

	forged := &http.Cookie{Name: auth.CookieName, Value: "not-a-token"}
	rr := do(srv, http.MethodGet, "/api/data", "", forged)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	cookie := signup(t, srv, "ana@example.com")
	rr = do(srv, http.MethodGet, "/api/unknown", "", cookie)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rr.Body.String())
}

func TestMonthLifecycle(t *testing.T) {
	srv := newTestServer(t, 100)
	cookie := signup(t, srv, "ana@example.com")

	rr := do(srv, http.MethodGet, "/api/data", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{}`, rr.Body.String())
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = do(srv, http.MethodPut, "/api/months/2024-03", `{"gAgua":"1500,50","gLuz":200,"iAdmin":1000}`, cookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())

	rr = do(srv, http.MethodGet, "/api/data", "", cookie)
	var months map[string]map[string]float64
	decodeBody(t, rr, &months)
	require.Contains(t, months, "2024-03")
	assert.Equal(t, 1500.5, months["2024-03"]["gAgua"])
	assert.Equal(t, 200.0, months["2024-03"]["gLuz"])

	// Another user sees nothing.
	other := signup(t, srv, "bob@example.com")
	rr = do(srv, http.MethodGet, "/api/data", "", other)
	assert.JSONEq(t, `{}`, rr.Body.String())

	rr = do(srv, http.MethodDelete, "/api/months/2024-03", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = do(srv, http.MethodGet, "/api/data", "", cookie)
	assert.JSONEq(t, `{}`, rr.Body.String())

	// Deleting again is fine.
	rr = do(srv, http.MethodDelete, "/api/months/2024-03", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMonthValidation(t *testing.T) {
	srv := newTestServer(t, 100)
	cookie := signup(t, srv, "ana@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad key", http.MethodPut, "/api/months/2024-13", `{}`, http.StatusBadRequest, "invalid_month"},
		{"bad key format", http.MethodPut, "/api/months/marzo", `{}`, http.StatusBadRequest, "invalid_month"},
		{"bad key delete", http.MethodDelete, "/api/months/24-1", "", http.StatusBadRequest, "invalid_month"},
		{"negative amount", http.MethodPut, "/api/months/2024-01", `{"gAgua":-5}`, http.StatusBadRequest, "invalid_month_data"},
		{"text amount", http.MethodPut, "/api/months/2024-01", `{"gAgua":"mucho"}`, http.StatusBadRequest, "invalid_month_data"},
		{"malformed body", http.MethodPut, "/api/months/2024-01", `{"gAgua":`, http.StatusBadRequest, "invalid_month_data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, tt.method, tt.path, tt.body, cookie)
			assert.Equal(t, tt.status, rr.Code)
			var body errorBody
			decodeBody(t, rr, &body)
			assert.Equal(t, tt.code, body.Error)
		})
	}
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, 100)
	cookie := signup(t, srv, "ana@example.com")

	do(srv, http.MethodPut, "/api/months/2024-02", `{"gAgua":100}`, cookie)
	do(srv, http.MethodPut, "/api/months/2024-01", `{"gGas":50}`, cookie)

	rr := do(srv, http.MethodGet, "/api/export", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="gastos.csv"`, rr.Header().Get("Content-Disposition"))

	lines := strings.Split(rr.Body.String(), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], `"Mes"`))
	assert.True(t, strings.HasPrefix(lines[1], `"2024-01"`))
	assert.True(t, strings.HasPrefix(lines[2], `"2024-02"`))
}

func TestTemplate(t *testing.T) {
	srv := newTestServer(t, 100)
	cookie := signup(t, srv, "ana@example.com")

	rr := do(srv, http.MethodGet, "/api/template", "", cookie)
	assert.JSONEq(t, `{"template":null}`, rr.Body.String())

	for _, body := range []string{`{"template":[1,2]}`, `{"template":"x"}`, `{}`, `{"template":`} {
		rr = do(srv, http.MethodPut, "/api/template", body, cookie)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		assert.JSONEq(t, `{"error":"invalid_template"}`, rr.Body.String(), body)
	}

	rr = do(srv, http.MethodPut, "/api/template", `{"template":{"gAgua":10,"nota":"fija"}}`, cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(srv, http.MethodGet, "/api/template", "", cookie)
	assert.JSONEq(t, `{"template":{"gAgua":10,"nota":"fija"}}`, rr.Body.String())
}

func TestGameAPI(t *testing.T) {
	srv := newTestServer(t, 100)
	cookie := signup(t, srv, "ana@example.com")

	rr := do(srv, http.MethodPost, "/api/game", "", cookie)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var started sessionBody
	decodeBody(t, rr, &started)
	require.NotEmpty(t, started.Session.ID)
	assert.Len(t, started.Session.State.Tiles, 2)

	base := "/api/game/" + started.Session.ID

	rr = do(srv, http.MethodGet, base, "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Keys that map to no direction are ignored.
	rr = do(srv, http.MethodPost, base+"/move", `{"key":"Enter"}`, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var ignored moveBody
	decodeBody(t, rr, &ignored)
	assert.False(t, ignored.Moved)
	assert.Nil(t, ignored.Result)
	assert.Equal(t, started.Session.State, ignored.Session.State)

	// Swipes too short to classify are ignored as well.
	rr = do(srv, http.MethodPost, base+"/move", `{"dx":1,"dy":2}`, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &ignored)
	assert.False(t, ignored.Moved)

	for _, key := range []string{"ArrowLeft", "ArrowUp", "ArrowRight", "ArrowDown"} {
		rr = do(srv, http.MethodPost, base+"/move", `{"key":"`+key+`"}`, cookie)
		require.Equal(t, http.StatusOK, rr.Code, key)
		var mv moveBody
		decodeBody(t, rr, &mv)
		require.NotNil(t, mv.Result)
		assert.Equal(t, mv.Result.Moved, mv.Moved)
	}

	rr = do(srv, http.MethodPost, base+"/move", `{"key":`, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"invalid_move"}`, rr.Body.String())

	rr = do(srv, http.MethodPost, base+"/reset", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var reset sessionBody
	decodeBody(t, rr, &reset)
	assert.Equal(t, 0, reset.Session.State.Score)
	assert.Len(t, reset.Session.State.Tiles, 2)

	rr = do(srv, http.MethodGet, "/api/game/best", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var best bestBody
	decodeBody(t, rr, &best)
	assert.GreaterOrEqual(t, best.Best, 0)
}

func TestGameNotFound(t *testing.T) {
	srv := newTestServer(t, 100)
	owner := signup(t, srv, "ana@example.com")
	other := signup(t, srv, "bob@example.com")

	rr := do(srv, http.MethodGet, "/api/game/does-not-exist", "", owner)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rr.Body.String())

	rr = do(srv, http.MethodPost, "/api/game", "", owner)
	var started sessionBody
	decodeBody(t, rr, &started)

	rr = do(srv, http.MethodPost, "/api/game/"+started.Session.ID+"/move", `{"key":"ArrowLeft"}`, other)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEndGame(t *testing.T) {
	srv := newTestServer(t, 100)
	owner := signup(t, srv, "ana@example.com")
	other := signup(t, srv, "bob@example.com")

	rr := do(srv, http.MethodPost, "/api/game", "", owner)
	require.Equal(t, http.StatusCreated, rr.Code)
	var started sessionBody
	decodeBody(t, rr, &started)
	base := "/api/game/" + started.Session.ID

	rr = do(srv, http.MethodDelete, base, "", other)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(srv, http.MethodDelete, base, "", owner)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())

	rr = do(srv, http.MethodGet, base, "", owner)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(srv, http.MethodDelete, base, "", owner)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPages(t *testing.T) {
	srv := newTestServer(t, 100)

	rr := do(srv, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `id="login-form"`)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))

	cookie := signup(t, srv, "ana@example.com")
	rr = do(srv, http.MethodGet, "/", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `id="input-mes"`)
	assert.Contains(t, rr.Body.String(), `id="board"`)

	req := httptest.NewRequest(http.MethodGet, "/somewhere", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rr = do(srv, http.MethodGet, "/favicon.ico", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = do(srv, http.MethodPost, "/", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, 100)
	for _, name := range []string{"app.js", "game.js", "login.js", "style.css"} {
		rr := do(srv, http.MethodGet, "/static/"+name, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, name)
		assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600", name)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, 100)

	rr := do(srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var health map[string]any
	decodeBody(t, rr, &health)
	assert.Equal(t, "ok", health["status"])

	rr = do(srv, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var ready struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	decodeBody(t, rr, &ready)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "ok", ready.Checks["storage"])
	assert.Contains(t, ready.Checks, "rate_limiter")
}

func TestAuthRateLimit(t *testing.T) {
	srv := newTestServer(t, 2)
	body := `{"email":"ana@example.com","password":"pw"}`

	for i := 0; i < 2; i++ {
		rr := do(srv, http.MethodPost, "/api/login", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr := do(srv, http.MethodPost, "/api/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.JSONEq(t, `{"error":"rate_limited"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// Other endpoints are not limited.
	rr = do(srv, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, 100)
	rr := do(srv, http.MethodGet, "/healthz", "", nil)
	assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))
}

func TestBodyTooLarge(t *testing.T) {
	srv := newTestServer(t, 100)
	cookie := signup(t, srv, "ana@example.com")

	big := `{"template":{"x":"` + string(bytes.Repeat([]byte("a"), maxBodyBytes)) + `"}}`
	rr := do(srv, http.MethodPut, "/api/template", big, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
