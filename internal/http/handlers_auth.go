package http

import (
	"errors"
	"net/http"

	applog "gastos/internal/log"
	"gastos/internal/services"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meBody struct {
	OK  bool   `json:"ok"`
	UID *int64 `json:"uid,omitempty"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	uid, err := s.deps.Accounts.Signup(r.Context(), c.Email, c.Password)
	switch {
	case errors.Is(err, services.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken")
		return
	case err != nil:
		writeServerError(w, r, "signup_error", err)
		return
	}

	if err := s.deps.Sessions.SetCookie(w, uid); err != nil {
		writeServerError(w, r, "signup_error", err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Signed up",
		applog.FieldOperation, applog.OpSignup, applog.FieldUID, uid)
	writeOK(w)
}

// handleLogin accepts either an email login or, without an email, the
// shared legacy password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	uid, legacy, err := s.deps.Accounts.Login(r.Context(), c.Email, c.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	case errors.Is(err, services.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	case errors.Is(err, services.ErrInvalidPassword):
		writeError(w, http.StatusUnauthorized, "invalid_password")
		return
	case err != nil:
		writeServerError(w, r, "login_error", err)
		return
	}

	if err := s.deps.Sessions.SetCookie(w, uid); err != nil {
		writeServerError(w, r, "login_error", err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Logged in",
		applog.FieldOperation, applog.OpLogin, applog.FieldUID, uid, "legacy", legacy)
	writeJSON(w, http.StatusOK, okBody{OK: true, Legacy: legacy})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Sessions.ClearCookie(w)
	writeOK(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.deps.Sessions.FromRequest(r)
	if !ok {
		writeJSON(w, http.StatusOK, meBody{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, meBody{OK: true, UID: &uid})
}
