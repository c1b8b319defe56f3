package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"reunion_archive/internal/httputil"
	"reunion_archive/internal/model"
)

// UserLoader loads the account behind an authenticated request.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// MembershipChecker answers whether a user belongs to a group.
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

// LoadUser resolves the authenticated user id into a user record. Must run
// after AuthMiddleware. A deleted account is treated as unauthenticated.
func LoadUser(users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, model.ErrUserNotFound) {
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Account no longer exists")
					return
				}
				zap.L().Named("http").Error("load user", zap.String("user_id", userID), zap.Error(err))
				httputil.WriteInternalError(w, "Failed to load user")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext returns the user stored by LoadUser.
func GetUserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserKey).(*model.User)
	return user, ok && user != nil
}

// RequireAdmin rejects users without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "Authentication required")
			return
		}
		if !user.IsAdmin() {
			httputil.WriteForbidden(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireGroupMember guards routes under /groups/{groupID}. Site admins pass
// without a membership.
func RequireGroupMember(groups MembershipChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}
			if user.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			groupID := chi.URLParam(r, "groupID")
			member, err := groups.IsMember(r.Context(), groupID, user.ID)
			if err != nil {
				zap.L().Named("http").Error("membership check",
					zap.String("group_id", groupID),
					zap.String("user_id", user.ID),
					zap.Error(err))
				httputil.WriteInternalError(w, "Failed to check group membership")
				return
			}
			if !member {
				httputil.WriteForbidden(w, "Not a member of this group")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
