package http

import (
	"log/slog"
	"net/http"

	"budgy/internal/core"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type validateTokenResponse struct {
	Valid bool       `json:"valid"`
	User  *core.User `json:"user,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", resp.UserID)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleValidateToken reports token validity instead of failing the request,
// so clients can probe a stored token at startup.
func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeJSON(w, http.StatusOK, validateTokenResponse{Valid: false})
		return
	}

	user, err := s.users.ValidateToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, validateTokenResponse{Valid: false})
		return
	}

	writeJSON(w, http.StatusOK, validateTokenResponse{Valid: true, User: user})
}
