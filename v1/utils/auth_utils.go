package utils

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mhs-association/membership-backend/v1/models"
)

// AuthContextKey is the key used to store authentication context in request context
type AuthContextKey string

const AuthContextKeyUser AuthContextKey = "authenticated_user"

// ExtractToken extracts the session token from the Authorization header.
// Clients send the bare token; a "Bearer " prefix is tolerated.
func ExtractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", fmt.Errorf("session token is empty")
	}

	return token, nil
}

// GetAuthenticatedUser retrieves the authenticated user from request context
func GetAuthenticatedUser(ctx context.Context) (*models.AuthenticatedUser, error) {
	user, ok := ctx.Value(AuthContextKeyUser).(*models.AuthenticatedUser)
	if !ok || user == nil {
		return nil, fmt.Errorf("no authenticated user found in context")
	}
	return user, nil
}

// SetAuthenticatedUser sets the authenticated user in request context
func SetAuthenticatedUser(ctx context.Context, user *models.AuthenticatedUser) context.Context {
	return context.WithValue(ctx, AuthContextKeyUser, user)
}

// RequireAuthentication is a helper that checks if a user is authenticated
func RequireAuthentication(r *http.Request) (*models.AuthenticatedUser, error) {
	return GetAuthenticatedUser(r.Context())
}

// RequireAdmin checks that the authenticated user holds the admin role.
func RequireAdmin(r *http.Request) (*models.AuthenticatedUser, error) {
	user, err := RequireAuthentication(r)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, fmt.Errorf("user does not have required role: %s", models.RoleAdmin)
	}
	return user, nil
}

// GetRequestIP extracts the client IP address from the request
func GetRequestIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if r.RemoteAddr != "" {
		if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
			return r.RemoteAddr[:idx]
		}
		return r.RemoteAddr
	}

	return "unknown"
}
