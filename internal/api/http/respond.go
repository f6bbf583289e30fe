package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes. Anything unmapped is
// a 500 with a generic body; the real error only goes to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *domain.ValidationError
		conflictErr    *domain.ConflictError
		blockedErr     *domain.AccountBlockedError
		signatureErr   *domain.SignatureError
		consistencyErr *domain.ConsistencyError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.As(err, &signatureErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: signatureErr.Error()})
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrScheduleNotFound),
		errors.Is(err, domain.ErrContractNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &conflictErr),
		errors.As(err, &blockedErr),
		errors.Is(err, domain.ErrDuplicateProviderID),
		errors.Is(err, domain.ErrScheduleAlreadyMaterialized):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &consistencyErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: consistencyErr.Error()})
	default:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "malformed JSON payload")
	}
	return nil
}
