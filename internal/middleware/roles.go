package middleware

import (
	"net/http"

	"github.com/planmoni/planmoni-backend/internal/api/httpx"
)

// RequireRole allows callers whose token role is one of roles. Tokens without
// a role claim are treated as "authenticated".
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := FromCtx(r.Context())
			if u.UserID == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
				return
			}
			role := u.Role
			if role == "" {
				role = "authenticated"
			}
			if _, ok := allowed[role]; !ok {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "role not permitted", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
