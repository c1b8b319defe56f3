package handler

import (
	"errors"
	"net/http"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/service"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

// NewMediaHandler wires the presign endpoints. mediaService is nil when
// object storage is not configured; every endpoint then answers 503.
func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// PresignAudioUpload handles POST /media/audio/presign
// Returns a presigned URL for uploading a voice comment directly to R2.
func (h *MediaHandler) PresignAudioUpload(w http.ResponseWriter, r *http.Request) {
	if h.mediaService == nil {
		httputil.WriteServiceUnavailable(w, "Media uploads are not configured")
		return
	}

	var req model.PresignUploadRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.mediaService.PresignAudioUpload(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidAudioType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidAudioType, "Unsupported audio type. Allowed: webm, ogg, mpeg, mp4, wav")
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Audio exceeds 15MB limit")
		default:
			logError(r, "presign audio", err)
			httputil.WriteInternalError(w, "Failed to create upload URL")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// PresignImageUpload handles POST /media/images/presign
// Returns a presigned URL for story and event cover images.
func (h *MediaHandler) PresignImageUpload(w http.ResponseWriter, r *http.Request) {
	if h.mediaService == nil {
		httputil.WriteServiceUnavailable(w, "Media uploads are not configured")
		return
	}

	var req model.PresignUploadRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.mediaService.PresignImageUpload(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
		default:
			logError(r, "presign image", err)
			httputil.WriteInternalError(w, "Failed to create upload URL")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
