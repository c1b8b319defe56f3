package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/service"
)

type TimelineHandler struct {
	timelineService *service.TimelineService
}

func NewTimelineHandler(timelineService *service.TimelineService) *TimelineHandler {
	return &TimelineHandler{timelineService: timelineService}
}

// List handles GET /groups/{groupID}/events?year=
func (h *TimelineHandler) List(w http.ResponseWriter, r *http.Request) {
	var year *int
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil || parsed < 1900 || parsed > 9999 {
			httputil.WriteBadRequest(w, "Invalid year parameter")
			return
		}
		year = &parsed
	}

	res, err := h.timelineService.List(r.Context(), chi.URLParam(r, "groupID"), year)
	if err != nil {
		logError(r, "list events", err)
		httputil.WriteInternalError(w, "Failed to list events")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Get handles GET /groups/{groupID}/events/{eventID}
func (h *TimelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.timelineService.Get(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, r, err, "get event")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

// Create handles POST /groups/{groupID}/events
func (h *TimelineHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in model.EventInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	event, err := h.timelineService.Create(r.Context(), chi.URLParam(r, "groupID"), user.ID, in)
	if err != nil {
		h.writeError(w, r, err, "create event", zap.String("user_id", user.ID))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

// Update handles PATCH /groups/{groupID}/events/{eventID}
func (h *TimelineHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	event, err := h.timelineService.Update(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "eventID"), in)
	if err != nil {
		h.writeError(w, r, err, "update event")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

// Delete handles DELETE /groups/{groupID}/events/{eventID}
func (h *TimelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.timelineService.Delete(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "eventID")); err != nil {
		h.writeError(w, r, err, "delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TimelineHandler) writeError(w http.ResponseWriter, r *http.Request, err error, op string, fields ...zap.Field) {
	switch {
	case errors.Is(err, model.ErrEventNotFound):
		httputil.WriteNotFound(w, "Event not found")
	case errors.Is(err, model.ErrTitleRequired):
		httputil.WriteBadRequest(w, "Title is required")
	default:
		logError(r, op, err, fields...)
		httputil.WriteInternalError(w, "Failed to "+op)
	}
}
