package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoute(t *testing.T) {
	RegisterRoutes([]string{
		"/health",
		"/api/login",
		"/api/admin/stats",
		"/api/member-info/:id",
		"/api/admin/delete-member/{id}",
		"/api/profile-photo/:id",
	})

	t.Run("Static routes are preserved", func(t *testing.T) {
		assert.Equal(t, "/health", normalizeRoute("/health"))
		assert.Equal(t, "/api/login", normalizeRoute("/api/login"))
		assert.Equal(t, "/api/admin/stats", normalizeRoute("/api/admin/stats"))
	})

	t.Run("Templates match dynamic segments", func(t *testing.T) {
		assert.Equal(t, "/api/member-info/:id", normalizeRoute("/api/member-info/M0042"))
		assert.Equal(t, "/api/admin/delete-member/:id", normalizeRoute("/api/admin/delete-member/M0107"))
		assert.Equal(t, "/api/profile-photo/:id", normalizeRoute("/api/profile-photo/abc123.jpg"))
	})

	t.Run("Root path", func(t *testing.T) {
		assert.Equal(t, "/", normalizeRoute("/"))
		assert.Equal(t, "/", normalizeRoute(""))
	})

	t.Run("Unregistered paths fall back", func(t *testing.T) {
		assert.Equal(t, "unknown", normalizeRoute("/nonexistent"))
	})
}

func TestMatchesTemplate(t *testing.T) {
	assert.True(t, matchesTemplate("/api/member-info/:id", []string{"api", "member-info", "M0042"}))
	assert.False(t, matchesTemplate("/api/member-info/:id", []string{"api", "scan"}))
	assert.False(t, matchesTemplate("/api/member-info/:id", []string{"api", "other", "M0042"}))
}

func TestLooksLikeID(t *testing.T) {
	assert.True(t, looksLikeID("123e4567-e89b-12d3-a456-426614174000"))
	assert.True(t, looksLikeID("M0042"))
	assert.True(t, looksLikeID("42"))
	assert.True(t, looksLikeID("user@example.com"))
	assert.True(t, looksLikeID("photo_123.jpg"))
	assert.False(t, looksLikeID(""))
	assert.False(t, looksLikeID("a-b"))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("membership-backend")
	assert.Equal(t, "membership-backend", config.ServiceName)
	assert.Equal(t, "prometheus", config.ExporterType)
	assert.NotEmpty(t, config.HistogramBuckets)
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("api-key=secret, x-tenant=mhs")
	assert.Equal(t, "secret", headers["api-key"])
	assert.Equal(t, "mhs", headers["x-tenant"])
	assert.Empty(t, parseHeaders(""))
}
