package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToken(t *testing.T) {
	t.Run("Bare token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/verify", nil)
		r.Header.Set("Authorization", "abc123")

		token, err := ExtractToken(r)
		require.NoError(t, err)
		assert.Equal(t, "abc123", token)
	})

	t.Run("Bearer prefix is tolerated", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/verify", nil)
		r.Header.Set("Authorization", "Bearer abc123")

		token, err := ExtractToken(r)
		require.NoError(t, err)
		assert.Equal(t, "abc123", token)
	})

	t.Run("Missing header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/verify", nil)
		_, err := ExtractToken(r)
		assert.Error(t, err)
	})
}

func TestGetRequestIP(t *testing.T) {
	t.Run("X-Forwarded-For takes the first hop", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", GetRequestIP(r))
	})

	t.Run("X-Real-IP fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Real-IP", "203.0.113.8")
		assert.Equal(t, "203.0.113.8", GetRequestIP(r))
	})

	t.Run("RemoteAddr without port", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "192.0.2.4:51234"
		assert.Equal(t, "192.0.2.4", GetRequestIP(r))
	})

	t.Run("No source at all", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = ""
		assert.Equal(t, "unknown", GetRequestIP(r))
	})
}
