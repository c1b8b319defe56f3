package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
	"reunion_archive/internal/service"
)

type StoryHandler struct {
	storyService *service.StoryService
}

func NewStoryHandler(storyService *service.StoryService) *StoryHandler {
	return &StoryHandler{storyService: storyService}
}

// List handles GET /groups/{groupID}/stories
// Returns a page of stories, newest first. Bodies are omitted.
func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	res, err := h.storyService.List(r.Context(), chi.URLParam(r, "groupID"), cursor, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			httputil.WriteBadRequest(w, "Invalid cursor")
			return
		}
		logError(r, "list stories", err)
		httputil.WriteInternalError(w, "Failed to get stories")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// Create handles POST /groups/{groupID}/stories
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in model.StoryInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	story, err := h.storyService.Create(r.Context(), chi.URLParam(r, "groupID"), user.ID, in)
	if err != nil {
		if errors.Is(err, model.ErrBodyRequired) {
			httputil.WriteBadRequest(w, "Story body is required")
			return
		}
		logError(r, "create story", err, zap.String("user_id", user.ID))
		httputil.WriteInternalError(w, "Failed to create story")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, story)
}

// Get handles GET /groups/{groupID}/stories/{storyID}
func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	story, err := h.storyService.Get(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "storyID"))
	if err != nil {
		h.writeError(w, r, err, "get story")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, story)
}

// Update handles PATCH /groups/{groupID}/stories/{storyID}
// Author or site admin only.
func (h *StoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in model.StoryInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	story, err := h.storyService.Update(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "storyID"), user, in)
	if err != nil {
		h.writeError(w, r, err, "update story")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, story)
}

// Delete handles DELETE /groups/{groupID}/stories/{storyID}
// Removes the story together with its comments.
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.storyService.Delete(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "storyID"), user); err != nil {
		h.writeError(w, r, err, "delete story")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StoryHandler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, model.ErrStoryNotFound):
		httputil.WriteNotFound(w, "Story not found")
	case errors.Is(err, model.ErrNotStoryOwner):
		httputil.WriteForbidden(w, "Only the author can change this story")
	case errors.Is(err, model.ErrBodyRequired):
		httputil.WriteBadRequest(w, "Story body is required")
	default:
		logError(r, op, err)
		httputil.WriteInternalError(w, "Failed to "+op)
	}
}
