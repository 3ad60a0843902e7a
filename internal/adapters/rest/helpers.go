package rest

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/scoady/backbeat/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	return err == nil && mediaType == "application/json"
}

// respondDomainError maps the error taxonomy onto HTTP statuses: validation
// failures are the client's fault, absence is 404, the rest is a server
// problem.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), "VALIDATION")
	case errors.Is(err, domain.ErrNotFound):
		writeErrorWithCode(w, http.StatusNotFound, "not found", "NOT_FOUND")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
