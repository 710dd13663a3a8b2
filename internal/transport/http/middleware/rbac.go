package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"workforce/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, roleName, permission string) (bool, error)
}

// RequirePermission admits callers whose role grants permission. Anonymous
// callers get 401, callers lacking the permission 403.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
				return
			}

			allowed, err := store.HasPermission(r.Context(), user.RoleName, permission)
			if err != nil {
				zap.L().Warn("permission check failed",
					zap.Error(err),
					zap.String("permission", permission),
					zap.String("role", user.RoleName),
					zap.String("requestId", requestID))
				api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", requestID)
				return
			}
			if !allowed {
				api.FailWithDetails(w, http.StatusForbidden, "forbidden", "insufficient permissions",
					map[string]string{"permission": permission}, requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
