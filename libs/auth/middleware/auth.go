package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated user attached to a request
type Identity struct {
	UserID   int
	Username string
	Role     string
}

// Resolver extracts the current identity from a request.
// The second return value is false for anonymous visitors.
type Resolver func(r *http.Request) (Identity, bool)

// DenyFunc writes the response for a rejected request.
// status is http.StatusUnauthorized or http.StatusForbidden.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int)

// AuthMiddleware rejects anonymous requests and stores the identity in the request context
func AuthMiddleware(resolve Resolver, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := resolve(r)
			if !ok || identity.UserID == 0 {
				deny(w, r, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the identity stored by AuthMiddleware or RoleMiddleware
func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
