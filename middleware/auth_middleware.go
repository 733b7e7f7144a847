package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cardfolio/cardfolio-api/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// Routes reachable without a token: login, registration and the Google
// OAuth handshake.
var publicRoutes = map[string]struct{}{
	"/auth/register":        {},
	"/auth/login":           {},
	"/auth/google":          {},
	"/auth/google/callback": {},
}

const adminPrefix = "/admin"

// EnsureValidToken is the single authentication point. It resolves the
// bearer token into an identity, attaches it to the request context and
// gates the admin prefix by role. Route handlers never re-check
// authentication; per-resource ownership stays their job.
func EnsureValidToken(codec *auth.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicRoutes[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing or malformed Authorization header")
				return
			}

			claims, err := codec.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid token")
				return
			}

			if strings.HasPrefix(r.URL.Path, adminPrefix) {
				if auth.CheckAdmin(claims) != auth.Granted {
					writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin role required")
					return
				}
			}

			ctx := context.WithValue(r.Context(), identityKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity attached by EnsureValidToken.
func IdentityFrom(r *http.Request) (*auth.Claims, bool) {
	claims, ok := r.Context().Value(identityKey).(*auth.Claims)
	return claims, ok
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error_code":    code,
		"error_message": message,
	})
}
