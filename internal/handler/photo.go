package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
	"reunion_archive/internal/service"
)

type PhotoHandler struct {
	photoService *service.PhotoService
}

func NewPhotoHandler(photoService *service.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

// List handles GET /groups/{groupID}/photos?event_id=&cursor=&limit=
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	var eventID *string
	if e := r.URL.Query().Get("event_id"); e != "" {
		eventID = &e
	}

	res, err := h.photoService.List(r.Context(), chi.URLParam(r, "groupID"), eventID, cursor, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			httputil.WriteBadRequest(w, "Invalid cursor")
			return
		}
		logError(r, "list photos", err)
		httputil.WriteInternalError(w, "Failed to list photos")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Upload handles POST /groups/{groupID}/photos
// Multipart fields: photo (file), caption, event_id.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	maxFormSize := int64(model.MaxPhotoSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Photo exceeds 10MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		httputil.WriteBadRequest(w, "photo file is required")
		return
	}
	defer file.Close()

	var in service.PhotoUpload
	if c := r.FormValue("caption"); c != "" {
		in.Caption = &c
	}
	if e := strings.TrimSpace(r.FormValue("event_id")); e != "" {
		in.EventID = &e
	}

	photo, err := h.photoService.Upload(r.Context(), chi.URLParam(r, "groupID"), user.ID, in, file, header)
	if err != nil {
		h.writeError(w, r, err, "upload photo")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, photo)
}

// Delete handles DELETE /groups/{groupID}/photos/{photoID}
// Allowed for the uploader, group owners and site admins.
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.photoService.Delete(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "photoID"), user); err != nil {
		h.writeError(w, r, err, "delete photo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PhotoHandler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, model.ErrPhotoNotFound):
		httputil.WriteNotFound(w, "Photo not found")
	case errors.Is(err, model.ErrEventNotFound):
		httputil.WriteBadRequest(w, "Event not found in this group")
	case errors.Is(err, model.ErrForbidden):
		httputil.WriteForbidden(w, "Only the uploader or a group owner can delete this photo")
	case errors.Is(err, model.ErrCaptionTooLong):
		httputil.WriteBadRequest(w, "Caption too long")
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Photo exceeds 10MB limit")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrStorageNotConfigured):
		httputil.WriteServiceUnavailable(w, "Uploads are not configured")
	default:
		logError(r, op, err)
		httputil.WriteInternalError(w, "Failed to "+op)
	}
}
