package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/circlesapp/backend/internal/auth"
	"github.com/circlesapp/backend/internal/logging"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenVerifier validates a presented identity token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// RequireAuth validates the Authorization bearer token and stores the
// verified claims on the request context. Requests without a valid token are
// rejected with 401 before reaching the handler.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "authorization header required")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				logging.FromContext(r.Context()).Warn("token verification failed", "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves claims stored by RequireAuth. The second return
// is false when the request did not pass through the middleware.
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(auth.Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
