package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/showseat/boxoffice/internal/auth"
	"github.com/showseat/boxoffice/internal/domain"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "valid email required"))
		return
	}
	if len(req.Password) < 6 {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, "password must be at least 6 characters"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	user := &domain.User{Email: req.Email, Name: req.Name, HashedPassword: hash}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeJSON(w, http.StatusConflict, map[string]string{"detail": "email already registered"})
			return
		}
		writeError(w, err)
		return
	}

	h.issueToken(w, user, http.StatusCreated)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !auth.VerifyPassword(user.HashedPassword, req.Password) {
		// Same answer for unknown email and wrong password.
		writeError(w, domain.ErrUnauthorized)
		return
	}

	h.issueToken(w, user, http.StatusOK)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	user, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
	})
}

func (h *Handlers) issueToken(w http.ResponseWriter, user *domain.User, status int) {
	token, err := auth.NewToken(h.secret, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, tokenResponse{AccessToken: token, TokenType: "bearer"})
}
