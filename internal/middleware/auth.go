package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/outrclub/outr-api/internal/crypto"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticator resolves a bearer token to the claims of a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*crypto.Claims, error)
}

// BearerAuth returns middleware that requires a valid bearer token whose
// session has not been revoked or expired.
func BearerAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "Missing or invalid token")
				return
			}

			claims, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, crypto.ErrInvalidToken) {
					slog.Error("authenticating request", "error", err)
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by BearerAuth.
func ClaimsFromContext(ctx context.Context) (*crypto.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*crypto.Claims)
	return claims, ok
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, false
	}
	return claims.UserID, true
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
