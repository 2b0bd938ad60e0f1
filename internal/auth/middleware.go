package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/japanesestudent/learnplayer/internal/models"
)

type contextKey string

const learnerKey contextKey = "learner"

// AuthMiddleware validates the access token and stores the learner in the request context
func AuthMiddleware(validator *TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)

			// If no token found, return 401
			if token == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"authentication required"}`))
				return
			}

			learner, err := validator.ValidateAccessToken(token)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid or expired token"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithLearner(r.Context(), learner)))
		})
	}
}

// extractToken reads the token from the Authorization header, falling back to the access_token cookie
func extractToken(r *http.Request) string {
	// Expected format: "Bearer <token>"
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	cookie, err := r.Cookie("access_token")
	if err == nil {
		return cookie.Value
	}
	return ""
}

// WithLearner returns a copy of ctx carrying the learner
func WithLearner(ctx context.Context, learner models.Learner) context.Context {
	return context.WithValue(ctx, learnerKey, learner)
}

// GetLearner retrieves the learner from context
func GetLearner(ctx context.Context) (models.Learner, bool) {
	learner, ok := ctx.Value(learnerKey).(models.Learner)
	return learner, ok
}
