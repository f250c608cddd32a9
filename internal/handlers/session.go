package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/CST438P3G6/slotbook/libs/auth"
)

type ctxKey int

const ctxKeySession ctxKey = iota

func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(ctxKeySession).(auth.Session)
	return sess, ok
}

// RequireSession authenticates the bearer token with the external auth
// provider's verifier and stores the resulting session on the request
// context. Handlers receive the session explicitly; there is no ambient
// current user.
func RequireSession(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(r.Context(), strings.TrimSpace(token))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, auth.SessionFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
