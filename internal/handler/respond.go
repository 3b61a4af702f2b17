package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/polischuks/checkbox/internal/auth"
	"github.com/polischuks/checkbox/internal/service"
)

const detailInternal = "Internal server error"

// errorResponse is the body of every error reply.
type errorResponse struct {
	Detail string `json:"detail"`
}

// respondWithJSON sends a JSON response.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"` + detailInternal + `"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// respondWithError sends a JSON error response.
func respondWithError(w http.ResponseWriter, code int, detail string, logger *slog.Logger) {
	respondWithJSON(w, code, errorResponse{Detail: detail}, logger)
}

// respondWithServiceError maps a service error to its HTTP status. Internal
// errors are logged and never echoed to the client.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Receipt not found", logger)
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrUnknownProduct),
		errors.Is(err, service.ErrInsufficientPayment):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), logger)
	case errors.Is(err, auth.ErrUsernameTaken):
		respondWithError(w, http.StatusBadRequest, "Username already registered", logger)
	case errors.Is(err, auth.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondWithError(w, http.StatusUnauthorized, "Incorrect username or password", logger)
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, detailInternal, logger)
	}
}
