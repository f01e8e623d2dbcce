package middleware

import (
	"net/http"

	"github.com/mhs-association/membership-backend/shared/utils"
)

// NewCORSMiddleware returns a middleware that answers preflight requests and
// sets CORS headers for the frontend origin. The origin comes from
// CORS_ALLOWED_ORIGIN and defaults to "*" for local development.
func NewCORSMiddleware() func(http.Handler) http.Handler {
	allowedOrigin := utils.GetEnvOrDefault("CORS_ALLOWED_ORIGIN", "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
