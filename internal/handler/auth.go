package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/polischuks/checkbox/internal/service"
)

// Register creates a user account from a JSON body.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body", h.logger)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Name, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
			return
		}
		respondWithServiceError(w, r, err, h.logger)
		return
	}

	respondWithJSON(w, http.StatusOK, newUserResponse(user), h.logger)
}

// Token exchanges form-encoded credentials for a bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "Invalid form body", h.logger)
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		respondWithError(w, http.StatusUnprocessableEntity, "username and password are required", h.logger)
		return
	}

	token, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondWithJSON(w, http.StatusOK, tokenResponse{AccessToken: token.AccessToken, TokenType: token.TokenType}, h.logger)
}
