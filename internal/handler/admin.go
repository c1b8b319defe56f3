package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
	"reunion_archive/internal/service"
)

// AdminHandler serves the admin console. Routes are mounted behind RequireAdmin.
type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers handles GET /admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	res, err := h.adminService.ListUsers(r.Context(), cursor, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			httputil.WriteBadRequest(w, "Invalid cursor")
			return
		}
		logError(r, "list users", err)
		httputil.WriteInternalError(w, "Failed to list users")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// SetRole handles PATCH /admin/users/{userID}/role
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.SetRoleRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.adminService.SetRole(r.Context(), admin.ID, chi.URLParam(r, "userID"), req.Role)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		case errors.Is(err, model.ErrInvalidRole):
			httputil.WriteBadRequest(w, "Role must be member or admin")
		case errors.Is(err, model.ErrForbidden):
			httputil.WriteForbidden(w, "You cannot remove your own admin role")
		default:
			logError(r, "set role", err)
			httputil.WriteInternalError(w, "Failed to change role")
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// DeleteComment handles DELETE /admin/comments/{commentID}
func (h *AdminHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.adminService.DeleteComment(r.Context(), admin.ID, chi.URLParam(r, "commentID")); err != nil {
		if errors.Is(err, model.ErrCommentNotFound) {
			httputil.WriteNotFound(w, "Comment not found")
			return
		}
		logError(r, "moderate comment", err)
		httputil.WriteInternalError(w, "Failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		logError(r, "stats", err)
		httputil.WriteInternalError(w, "Failed to load stats")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
