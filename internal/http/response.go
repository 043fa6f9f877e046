package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	applog "gastos/internal/log"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type okBody struct {
	OK     bool `json:"ok"`
	Legacy bool `json:"legacy,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorBody{Error: code})
}

// writeServerError answers 500 with "<op>_error" and the cause, and logs it.
func writeServerError(w http.ResponseWriter, r *http.Request, code string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		applog.FieldPath, r.URL.Path,
		applog.FieldOperation, code,
		applog.FieldError, err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: code, Details: err.Error()})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge
	}
	return err
}
