package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/service"
)

type GroupHandler struct {
	groupService *service.GroupService
}

func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// List handles GET /groups
// Returns the groups the caller belongs to.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	groups, err := h.groupService.ListMine(r.Context(), user.ID)
	if err != nil {
		logError(r, "list groups", err, zap.String("user_id", user.ID))
		httputil.WriteInternalError(w, "Failed to list groups")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// Create handles POST /groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.CreateGroupRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.Create(r.Context(), user.ID, req)
	if err != nil {
		if errors.Is(err, model.ErrGroupSlugExists) {
			httputil.WriteConflict(w, "Group slug already exists")
			return
		}
		logError(r, "create group", err)
		httputil.WriteInternalError(w, "Failed to create group")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, group)
}

// Get handles GET /groups/{groupID}
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	group, err := h.groupService.Get(r.Context(), chi.URLParam(r, "groupID"), user.ID)
	if err != nil {
		h.writeError(w, r, err, "get group")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, group)
}

// Update handles PATCH /groups/{groupID}
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateGroupRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.Update(r.Context(), chi.URLParam(r, "groupID"), user, req)
	if err != nil {
		h.writeError(w, r, err, "update group")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, group)
}

// UploadLogo handles POST /groups/{groupID}/logo (multipart field "logo")
func (h *GroupHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	maxFormSize := int64(model.MaxLogoSizeBytes) + 1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Logo exceeds 1MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		httputil.WriteBadRequest(w, "logo file is required")
		return
	}
	defer file.Close()

	group, err := h.groupService.UploadLogo(r.Context(), chi.URLParam(r, "groupID"), user, file, header)
	if err != nil {
		h.writeError(w, r, err, "upload logo")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, group)
}

// AddMember handles POST /groups/{groupID}/members
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.AddGroupMemberRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.groupService.AddMember(r.Context(), chi.URLParam(r, "groupID"), user, req); err != nil {
		h.writeError(w, r, err, "add member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember handles DELETE /groups/{groupID}/members/{userID}
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.groupService.RemoveMember(r.Context(), chi.URLParam(r, "groupID"), user, chi.URLParam(r, "userID")); err != nil {
		h.writeError(w, r, err, "remove member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, model.ErrGroupNotFound):
		httputil.WriteNotFound(w, "Group not found")
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteNotFound(w, "User not found")
	case errors.Is(err, model.ErrNotGroupMember):
		httputil.WriteNotFound(w, "User is not a member of this group")
	case errors.Is(err, model.ErrNotGroupOwner):
		httputil.WriteForbidden(w, "Only group owners can do this")
	case errors.Is(err, model.ErrLastGroupOwner):
		httputil.WriteConflict(w, "A group needs at least one owner")
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Logo exceeds 1MB limit")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported logo type. Allowed: svg, jpeg, png, gif, webp")
	case errors.Is(err, model.ErrInvalidSVG):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidSVG, "Logo is not a valid SVG document")
	case errors.Is(err, model.ErrStorageNotConfigured):
		httputil.WriteServiceUnavailable(w, "Uploads are not configured")
	default:
		logError(r, op, err)
		httputil.WriteInternalError(w, "Failed to "+op)
	}
}
