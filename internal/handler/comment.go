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

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// List handles GET /groups/{groupID}/stories/{storyID}/comments
// Returns the story's comments as a reply forest.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	storyID := chi.URLParam(r, "storyID")

	thread, err := h.commentService.ListThread(r.Context(), groupID, storyID)
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			httputil.WriteNotFound(w, "Story not found")
			return
		}
		logError(r, "list comments", err, zap.String("story_id", storyID))
		httputil.WriteInternalError(w, "Failed to get comments")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, thread)
}

// Create handles POST /groups/{groupID}/stories/{storyID}/comments
// Creates a comment, or a reply when parent_id is set.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	groupID := chi.URLParam(r, "groupID")
	storyID := chi.URLParam(r, "storyID")

	var req model.CreateCommentRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	comment, err := h.commentService.Create(r.Context(), groupID, storyID, user.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrStoryNotFound):
			httputil.WriteNotFound(w, "Story not found")
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Parent comment not found")
		case errors.Is(err, model.ErrParentWrongStory):
			httputil.WriteBadRequest(w, "Parent comment belongs to another story")
		case errors.Is(err, model.ErrContentRequired):
			httputil.WriteBadRequest(w, "Comment content or audio is required")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Comment content too long")
		default:
			logError(r, "create comment", err, zap.String("story_id", storyID), zap.String("user_id", user.ID))
			httputil.WriteInternalError(w, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Update handles PATCH /groups/{groupID}/stories/{storyID}/comments/{commentID}
// Edits the text of a comment (only owner can edit).
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateCommentRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	comment, err := h.commentService.Update(r.Context(),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "storyID"), chi.URLParam(r, "commentID"), user.ID, req)
	if err != nil {
		h.writeError(w, r, err, "update comment")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Delete handles DELETE /groups/{groupID}/stories/{storyID}/comments/{commentID}
// Deletes a comment (owner or site admin). Replies stay and show as top-level comments.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	err := h.commentService.Delete(r.Context(),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "storyID"), chi.URLParam(r, "commentID"), user)
	if err != nil {
		h.writeError(w, r, err, "delete comment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleLike handles POST /groups/{groupID}/stories/{storyID}/comments/{commentID}/like
func (h *CommentHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	res, err := h.commentService.ToggleLike(r.Context(),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "storyID"), chi.URLParam(r, "commentID"), user.ID)
	if err != nil {
		h.writeError(w, r, err, "toggle like")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *CommentHandler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, model.ErrStoryNotFound):
		httputil.WriteNotFound(w, "Story not found")
	case errors.Is(err, model.ErrCommentNotFound):
		httputil.WriteNotFound(w, "Comment not found")
	case errors.Is(err, model.ErrNotCommentOwner):
		httputil.WriteForbidden(w, "You can only change your own comments")
	case errors.Is(err, model.ErrContentRequired):
		httputil.WriteBadRequest(w, "Comment content or audio is required")
	case errors.Is(err, model.ErrContentTooLong):
		httputil.WriteBadRequest(w, "Comment content too long")
	default:
		logError(r, op, err)
		httputil.WriteInternalError(w, "Failed to "+op)
	}
}
