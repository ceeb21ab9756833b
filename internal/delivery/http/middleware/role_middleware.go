package middleware

import (
	"net/http"

	"github.com/hisiddique/bloodathome/pkg/response"
)

// RequireAdmin guards the back-office routes. Runs after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetRoleIDFromContext(r.Context()); !ok {
			response.Unauthorized(w, "Role information not found")
			return
		}
		if !IsAdmin(r.Context()) {
			response.Forbidden(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
