package auth

import (
	"context"
	"net/http"
	"strings"
)

// authUserKey is a context key for the authenticated user.
type authUserKey struct{}

// UserFromContext returns the authenticated user from the request context.
// Returns nil if the request is not authenticated.
func UserFromContext(ctx context.Context) *User {
	if u, ok := ctx.Value(authUserKey{}).(*User); ok {
		return u
	}
	return nil
}

// publicPaths do not require a bearer token.
var publicPaths = map[string]bool{
	"/token": true,
}

// Middleware validates bearer tokens against the auth service on every
// request except the token-issuing endpoint itself and non-API
// infrastructure paths (healthz, metrics).
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			raw := r.URL.Query().Get("token")
			if raw == "" {
				authHeader := r.Header.Get("Authorization")
				if !strings.HasPrefix(authHeader, "Bearer ") {
					writeAuthError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
					return
				}
				raw = strings.TrimPrefix(authHeader, "Bearer ")
			}

			user, err := svc.Authenticate(r.Context(), raw)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), authUserKey{}, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
