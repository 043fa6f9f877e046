package http

import (
	"context"
	"net/http"

	applog "gastos/internal/log"
)

type contextKey string

const uidKey contextKey = "uid"

// requireAuth rejects requests without a valid session cookie and puts the
// caller's uid in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.deps.Sessions.FromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), uidKey, uid)
		ctx = applog.WithLogger(ctx, applog.FromContext(ctx).With(applog.FieldUID, uid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// uidFrom returns the uid stored by requireAuth.
func uidFrom(ctx context.Context) int64 {
	uid, _ := ctx.Value(uidKey).(int64)
	return uid
}
