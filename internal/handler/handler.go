// Package handler exposes the archive services over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
	"reunion_archive/internal/transport/http/middleware"
)

// currentUser returns the user loaded by the auth chain, writing a 401 when absent.
func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return nil, false
	}
	return user, true
}

// pageParams reads ?cursor= and ?limit=. A zero limit lets the service pick its default.
func pageParams(w http.ResponseWriter, r *http.Request) (cursor *string, limit int, ok bool) {
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return nil, 0, false
		}
		limit = parsed
	}
	return cursor, limit, true
}

// logError records an unexpected failure before the handler answers 500.
func logError(r *http.Request, msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	zap.L().Named("http").Error(msg, fields...)
}
