// Package middleware provides HTTP middlewares for inspector authentication and logging.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const clientKey ctxKey = "client"

// TokenAuth returns a middleware that requires the given bearer token.
//
// The token is read from the Authorization header ("Bearer <token>") or,
// for WebSocket upgrades that cannot set headers, from the "token" query
// parameter. An empty token disables the check. Every request that passes
// gets a client id in its context, used to correlate log lines.
func TokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && !tokenMatches(r, token) {
				http.Error(w, "invalid or missing token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), clientKey, uuid.NewString())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenMatches(r *http.Request, token string) bool {
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		got = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

// GetClientIDFromContext extracts the client id assigned by TokenAuth.
// Returns an empty string if not found.
func GetClientIDFromContext(ctx context.Context) string {
	val := ctx.Value(clientKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
