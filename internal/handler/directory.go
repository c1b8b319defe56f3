package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/service"
)

// DirectoryHandler serves a group's classmate directory.
type DirectoryHandler struct {
	memberService *service.MemberService
}

func NewDirectoryHandler(memberService *service.MemberService) *DirectoryHandler {
	return &DirectoryHandler{memberService: memberService}
}

// List handles GET /groups/{groupID}/directory?q=
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.memberService.List(r.Context(), chi.URLParam(r, "groupID"), r.URL.Query().Get("q"))
	if err != nil {
		logError(r, "list directory", err)
		httputil.WriteInternalError(w, "Failed to list members")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Get handles GET /groups/{groupID}/directory/{memberID}
func (h *DirectoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	member, err := h.memberService.Get(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "memberID"))
	if err != nil {
		h.writeError(w, r, err, "get member")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

// Create handles POST /groups/{groupID}/directory
func (h *DirectoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.MemberInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	member, err := h.memberService.Create(r.Context(), chi.URLParam(r, "groupID"), in)
	if err != nil {
		h.writeError(w, r, err, "create member")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, member)
}

// Update handles PATCH /groups/{groupID}/directory/{memberID}
// The body replaces the whole entry.
func (h *DirectoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in model.MemberInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	member, err := h.memberService.Update(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "memberID"), in)
	if err != nil {
		h.writeError(w, r, err, "update member")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

// Delete handles DELETE /groups/{groupID}/directory/{memberID}
func (h *DirectoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.memberService.Delete(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "memberID")); err != nil {
		h.writeError(w, r, err, "delete member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DirectoryHandler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, model.ErrMemberNotFound):
		httputil.WriteNotFound(w, "Member not found")
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteBadRequest(w, "Linked user does not exist")
	case errors.Is(err, model.ErrFullNameRequired):
		httputil.WriteBadRequest(w, "Full name is required")
	default:
		logError(r, op, err)
		httputil.WriteInternalError(w, "Failed to "+op)
	}
}
