package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/outrclub/outr-api/internal/middleware"
	"github.com/outrclub/outr-api/internal/model"
	"github.com/outrclub/outr-api/internal/service"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// HandleSignup handles POST /api/auth/signup requests.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Signup(r.Context(), req, middleware.ClientInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		case errors.Is(err, service.ErrConflict):
			writeJSON(w, http.StatusConflict, errorResponse("Email or username already in use"))
		default:
			slog.Error("signup failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse("Signup failed"))
		}
		return
	}

	resp.Message = "Account created"
	writeJSON(w, http.StatusCreated, resp)
}

// HandleLogin handles POST /api/auth/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req, middleware.ClientInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		case errors.Is(err, service.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errorResponse("Invalid email or password"))
		case errors.Is(err, service.ErrAccountInactive):
			writeJSON(w, http.StatusForbidden, errorResponse("Account is inactive"))
		default:
			slog.Error("login failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse("Login failed"))
		}
		return
	}

	resp.Message = "Logged in"
	writeJSON(w, http.StatusOK, resp)
}

// HandleLogout handles POST /api/auth/logout requests. It succeeds whether
// or not a valid token is presented.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	err := h.service.Logout(r.Context(), middleware.BearerToken(r), middleware.ClientInfo(r))
	if err != nil {
		slog.Error("logout failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse("Logout failed"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// HandleLogoutAll handles POST /api/auth/logout-all requests.
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	n, err := h.service.LogoutAll(r.Context(), userID, middleware.ClientInfo(r))
	if err != nil {
		slog.Error("logout-all failed", "error", err, "user_id", userID)
		writeJSON(w, http.StatusInternalServerError, errorResponse("Logout failed"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out everywhere", "sessions": n})
}

// HandleDeactivate handles POST /api/account/deactivate requests.
func (h *AuthHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	if err := h.service.Deactivate(r.Context(), userID, middleware.ClientInfo(r)); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse("User not found"))
			return
		}
		slog.Error("deactivation failed", "error", err, "user_id", userID)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deactivated"})
}

// HandleMe handles GET /api/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	me, err := h.service.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse("User not found"))
			return
		}
		slog.Error("loading account failed", "error", err, "user_id", userID)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": me})
}
