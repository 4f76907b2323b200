package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/identity"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenValidator checks a bearer token and reconstructs its principal. The
// local identity provider implements it.
type TokenValidator interface {
	ValidateToken(token string) (identity.Principal, error)
}

// PrincipalFromContext returns the principal injected by SessionAuth.
func PrincipalFromContext(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalKey).(identity.Principal)
	return p, ok
}

// ContextWithPrincipal injects a principal, used by tests and the session
// bootstrap paths.
func ContextWithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// SessionAuth validates the Authorization bearer token when present and
// injects the principal plus the audit actor into the request context.
// Requests without a token pass through unauthenticated; RequireSession
// decides which routes demand one.
func SessionAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			p, err := validator.ValidateToken(token)
			if err != nil {
				http.Error(w, "invalid or expired session token", http.StatusUnauthorized)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), p)
			ctx = internal.ContextWithActor(ctx, p.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests that did not authenticate.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
