package handler

import (
	"net/http"

	"go.uber.org/zap"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/service"
)

// NotificationHandler manages the device tokens used for push notifications.
type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

// ListDevices handles GET /devices
func (h *NotificationHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	devices, err := h.notifService.Devices(r.Context(), user.ID)
	if err != nil {
		logError(r, "list devices", err, zap.String("user_id", user.ID))
		httputil.WriteInternalError(w, "Failed to list devices")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// RegisterToken handles POST /devices
// Registers a device token for push notifications.
func (h *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.RegisterTokenRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.notifService.RegisterDeviceToken(r.Context(), user.ID, req); err != nil {
		logError(r, "register device token", err, zap.String("user_id", user.ID))
		httputil.WriteInternalError(w, "Failed to register device token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device token registered",
	})
}

// RemoveToken handles DELETE /devices
// Removes one of the caller's device tokens (e.g., on logout).
func (h *NotificationHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.UnregisterTokenRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.notifService.RemoveDeviceToken(r.Context(), user.ID, req.Token); err != nil {
		logError(r, "remove device token", err, zap.String("user_id", user.ID))
		httputil.WriteInternalError(w, "Failed to remove device token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device token removed",
	})
}
