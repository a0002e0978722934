package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/larkvi/esgrade/internal/evals"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

// writeEngineError maps the engine's typed errors onto HTTP statuses.
// Business-rule failures surface the specific rule; infrastructure faults
// stay generic.
func writeEngineError(w http.ResponseWriter, err error) {
	var verr *evals.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Reason, http.StatusBadRequest)
	case errors.Is(err, evals.ErrOrganizationMismatch):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, evals.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, evals.ErrAlreadyExists),
		errors.Is(err, evals.ErrAlreadySubmitted),
		errors.Is(err, evals.ErrEmptyEvaluation),
		errors.Is(err, evals.ErrCannotDeleteSubmitted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.Error.Printf("ERROR: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
