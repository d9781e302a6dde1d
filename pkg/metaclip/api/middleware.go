package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/render"
)

type contextKey string

// callerKey carries the authenticated caller identity through the request
// context.
const callerKey contextKey = "metaclip-caller"

// CallerFromContext returns the authenticated caller identity, if any.
func CallerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey).(string)
	return caller
}

// RequireToken authenticates requests with an opaque bearer token from the
// Authorization header, matched against the configured list. An empty list
// disables the check (development only). Token comparison is constant time.
func RequireToken(tokens []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(tokens) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get("Authorization")
			for _, token := range tokens {
				if len(presented) == len(token) &&
					subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1 {
					ctx := context.WithValue(r.Context(), callerKey, token)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: "invalid auth token", Code: "unauthorized"})
		})
	}
}
