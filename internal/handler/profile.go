package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/outrclub/outr-api/internal/middleware"
	"github.com/outrclub/outr-api/internal/model"
	"github.com/outrclub/outr-api/internal/service"
)

// ProfileHandler handles HTTP requests for profiles and audit history.
type ProfileHandler struct {
	service *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// HandleGetProfile handles GET /api/profile requests.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		slog.Error("loading profile failed", "error", err, "user_id", userID)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	if p == nil {
		writeJSON(w, http.StatusOK, model.ProfileResponse{Profile: struct{}{}})
		return
	}
	writeJSON(w, http.StatusOK, model.ProfileResponse{Profile: p})
}

// HandleUpdateProfile handles PUT /api/profile requests.
func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	var req model.ProfileUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), userID, req, middleware.ClientInfo(r))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		slog.Error("profile update failed", "error", err, "user_id", userID)
		writeJSON(w, http.StatusInternalServerError, errorResponse("Profile update failed"))
		return
	}

	writeJSON(w, http.StatusOK, model.ProfileResponse{Profile: p})
}

// HandleListAudit handles GET /api/audit requests.
func (h *ProfileHandler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("limit must be an integer"))
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("offset must be an integer"))
		return
	}

	resp, err := h.service.ListAudit(r.Context(), userID, limit, offset)
	if err != nil {
		slog.Error("listing audit log failed", "error", err, "user_id", userID)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
