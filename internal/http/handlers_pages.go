package http

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	applog "gastos/internal/log"
)

type pageData struct {
	Month string
	Year  int
}

// acceptsHTML matches browser navigations: an Accept header with
// text/html, a path ending in .html, or the site root.
func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html") ||
		strings.HasSuffix(r.URL.Path, ".html") ||
		r.URL.Path == "/"
}

// handlePage serves the login page to visitors and the app to signed-in
// users. Anything else that reaches it is a bare 404.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if (r.Method != http.MethodGet && r.Method != http.MethodHead) || !acceptsHTML(r) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	page := "login.html"
	if _, ok := s.deps.Sessions.FromRequest(r); ok {
		page = "index.html"
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, page, pageData{Month: now.Format("2006-01"), Year: now.Year()}); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", page, applog.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady pings storage and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.deps.Store.Ping(ctx); err != nil {
		checks["storage"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	stats := s.deps.Months.Cache().Stats()
	checks["cache"] = map[string]any{
		"entries": stats.Size,
		"hits":    stats.Hits,
		"misses":  stats.Misses,
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.Rejected(),
	}
	tm := s.tracer.GetMetrics()
	checks["requests"] = map[string]any{
		"total":         tm.TotalRequests,
		"server_errors": tm.ServerErrors,
	}
	checks["suspicious_requests"] = s.detector.Suspicious()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
