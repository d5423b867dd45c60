package auth

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

type contextKey string

// UserContextKey holds the validated claims on authenticated requests.
const UserContextKey contextKey = "user"

// Middleware handles authentication for incoming HTTP requests.
type Middleware struct {
	Config *Config
	Logger *logrus.Logger
}

// NewMiddleware initializes a new authentication middleware.
func NewMiddleware(config *Config, logger *logrus.Logger) *Middleware {
	return &Middleware{
		Config: config,
		Logger: logger,
	}
}

// AuthMiddleware is the HTTP middleware for authentication. With auth disabled
// requests pass through untouched.
func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Config.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := extractToken(r)
		if tokenString == "" {
			m.Logger.Warn("Authorization token not found")
			WriteErrorResponse(w, "Authorization token not found", http.StatusUnauthorized)
			return
		}

		claims, err := parseJWT(tokenString, m.Config.JwtSecret)
		if err != nil {
			m.Logger.WithError(err).Warn("Invalid token")
			WriteErrorResponse(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// Attach claims to the request context
		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
