package middleware

import (
	"context"
	"log/slog"
	"net/http"

	sharedutils "github.com/mhs-association/membership-backend/shared/utils"
	"github.com/mhs-association/membership-backend/v1/models"
	authutils "github.com/mhs-association/membership-backend/v1/utils"
)

// TokenValidator resolves a session token to an authenticated user. A nil
// user with a nil error means the token is unknown or expired.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*models.AuthenticatedUser, error)
}

// SessionAuthMiddleware authenticates requests by looking up the opaque
// bearer token from the Authorization header. Requests fail closed: any
// lookup error yields 401, never an unauthenticated pass-through.
type SessionAuthMiddleware struct {
	validator TokenValidator
}

// NewSessionAuthMiddleware creates a session authentication middleware.
func NewSessionAuthMiddleware(validator TokenValidator) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{validator: validator}
}

// Authenticate wraps a handler with session token authentication.
func (m *SessionAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := authutils.ExtractToken(r)
		if err != nil {
			sharedutils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		user, err := m.validator.Validate(r.Context(), token)
		if err != nil {
			slog.Error("Session validation failed",
				"error", err, "path", r.URL.Path, "ip", authutils.GetRequestIP(r))
			sharedutils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		if user == nil {
			slog.Warn("Rejected invalid session token",
				"path", r.URL.Path, "ip", authutils.GetRequestIP(r))
			sharedutils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		ctx := authutils.SetAuthenticatedUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
