package middleware

import (
	"context"
	"net/http"
	"slices"
)

// RoleMiddleware rejects anonymous requests with 401 and users whose role is not listed with 403
func RoleMiddleware(resolve Resolver, deny DenyFunc, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := resolve(r)
			if !ok || identity.UserID == 0 {
				deny(w, r, http.StatusUnauthorized)
				return
			}

			if !slices.Contains(roles, identity.Role) {
				deny(w, r, http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
