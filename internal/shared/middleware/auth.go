package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"fluxo/internal/shared/auth"
)

type ContextKey string

const (
	UserIDKey ContextKey = "user_id"
	EmailKey  ContextKey = "email"
)

// UserID extracts the authenticated user ID from a request context.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// Auth authenticates browser and API-client requests with a session token,
// trying the HttpOnly cookie first and the Authorization header second.
func Auth(jwt *auth.JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			if cookie, err := r.Cookie("access_token"); err == nil {
				token = cookie.Value
			} else {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					http.Error(w, "Authentication required", http.StatusUnauthorized)
					return
				}
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || parts[0] != "Bearer" {
					http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
					return
				}
				token = parts[1]
			}

			claims, err := jwt.Validate(token)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyAuth authenticates machine clients with an X-API-Key header and
// records the key's last use.
func APIKeyAuth(repo auth.APIKeyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plaintext := r.Header.Get("X-API-Key")
			if plaintext == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			key, err := auth.VerifyAPIKey(r.Context(), repo, plaintext)
			if err != nil {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			if err := repo.TouchLastUsed(r.Context(), key.ID, time.Now()); err != nil {
				log.Printf("Warning: failed to record API key use %s: %v", key.ID, err)
			}

			ctx := context.WithValue(r.Context(), UserIDKey, key.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
