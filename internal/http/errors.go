package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/showseat/boxoffice/internal/domain"
)

// Clients display the detail string verbatim, so every branch returns
// something a user can act on.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := "internal error"

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, detail = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		status, detail = http.StatusUnauthorized, "invalid or missing credentials"
	case errors.Is(err, domain.ErrForbidden):
		status, detail = http.StatusForbidden, "admin access required"
	case errors.Is(err, domain.ErrNotFound):
		status, detail = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrExpired):
		status, detail = http.StatusConflict, "hold expired, please choose seats again"
	case errors.Is(err, domain.ErrInvalidState):
		status, detail = http.StatusConflict, "order state does not allow this operation"
	case errors.Is(err, domain.ErrSerializationFailure):
		status, detail = http.StatusConflict, "conflict, try again"
	case errors.Is(err, domain.ErrConflict):
		status, detail = http.StatusConflict, "seat no longer available, refresh and retry"
	}

	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
