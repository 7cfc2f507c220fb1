package handler

import (
	"log/slog"
	"net/http"

	"github.com/project-tracker-api/internal/auth"
	"github.com/project-tracker-api/internal/dto"
	"github.com/project-tracker-api/internal/service"
)

// AuthHandler обслуживает вход, обновление токена и профиль
type AuthHandler struct {
	base
	auth service.AuthService
}

// NewAuthHandler создаёт обработчик аутентификации
func NewAuthHandler(authService service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{base: newBase(logger), auth: authService}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, pair, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondOK(w, dto.TokenResponse{Access: pair.Access, Refresh: pair.Refresh, User: dto.ToUser(u)})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondOK(w, map[string]string{"access": access})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.Logout(r.Context(), req.Refresh); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.Response{Status: dto.StatusSuccess, Message: "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.Me(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToUser(u))
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.auth.UpdateMe(r.Context(), auth.UserFrom(r.Context()), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondOK(w, dto.ToUser(u))
}
