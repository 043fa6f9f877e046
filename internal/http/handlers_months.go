package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

type templateBody struct {
	Template json.RawMessage `json:"template"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	months, err := s.deps.Months.List(r.Context(), uidFrom(r.Context()))
	if err != nil {
		writeServerError(w, r, "db_error", err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handlePutMonth(w http.ResponseWriter, r *http.Request) {
	key, err := core.ParseMonthKey(chi.URLParam(r, "mes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_month")
		return
	}

	var m core.Month
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_month_data")
		return
	}

	uid := uidFrom(r.Context())
	err = s.deps.Months.Save(r.Context(), uid, key, m)
	switch {
	case errors.Is(err, core.ErrNegativeAmount), errors.Is(err, core.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_month_data")
		return
	case err != nil:
		writeServerError(w, r, "db_error", err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogMonthChange(r.Context(), applog.OpSave, uid, key.String())
	writeOK(w)
}

func (s *Server) handleDeleteMonth(w http.ResponseWriter, r *http.Request) {
	key, err := core.ParseMonthKey(chi.URLParam(r, "mes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_month")
		return
	}

	uid := uidFrom(r.Context())
	if err := s.deps.Months.Delete(r.Context(), uid, key); err != nil {
		writeServerError(w, r, "db_error", err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogMonthChange(r.Context(), applog.OpDelete, uid, key.String())
	writeOK(w)
}

// handleExport renders the whole CSV before writing so a storage failure
// can still be reported as JSON.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Months.Export(r.Context(), uidFrom(r.Context()), &buf); err != nil {
		writeServerError(w, r, "export_error", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="gastos.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.deps.Months.Template(r.Context(), uidFrom(r.Context()))
	if err != nil {
		writeServerError(w, r, "template_get_error", err)
		return
	}
	writeJSON(w, http.StatusOK, templateBody{Template: tpl})
}

func (s *Server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	var body templateBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_template")
		return
	}

	err := s.deps.Months.SaveTemplate(r.Context(), uidFrom(r.Context()), body.Template)
	switch {
	case errors.Is(err, services.ErrInvalidTemplate):
		writeError(w, http.StatusBadRequest, "invalid_template")
		return
	case err != nil:
		writeServerError(w, r, "template_put_error", err)
		return
	}
	writeOK(w)
}
