package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/billable/timesheet-api/internal/auth"
	"github.com/billable/timesheet-api/internal/http/respond"
)

type principalKeyType struct{}

var principalKey principalKeyType

// Authenticate is the identity gate for the API: it rejects requests without
// a valid bearer token with 401 before any handler runs, and attaches the
// verified principal to the request context otherwise.
func Authenticate(tokens *auth.TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			respond.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		principal, err := tokens.Parse(token)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the authenticated principal placed by Authenticate.
func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}
