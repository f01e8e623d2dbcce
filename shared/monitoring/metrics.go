package monitoring

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	initOnce sync.Once
	initErr  error
)

var (
	// routesMu protects routes and routeTemplates
	routesMu sync.RWMutex
	// routes is a set of static routes preserved as-is in metric labels
	routes = make(map[string]bool)
	// routeTemplates holds templates like "/api/member-info/:id" matched
	// against incoming paths
	routeTemplates = make([]string, 0)
)

// ensureInitialized initializes OpenTelemetry with default config the first
// time a metrics function is used. Observability can be disabled via
// ENABLE_OBSERVABILITY=false or OTEL_METRICS_ENABLED=false.
func ensureInitialized() {
	initOnce.Do(func() {
		if !IsObservabilityEnabled() {
			slog.Info("Observability disabled via environment variable, skipping initialization")
			initErr = errors.New("observability disabled via environment variable")
			return
		}

		serviceName := os.Getenv("SERVICE_NAME")
		if serviceName == "" {
			serviceName = "membership-backend"
		}

		initErr = Initialize(DefaultConfig(serviceName))
		if initErr != nil {
			slog.Error("Failed to initialize OpenTelemetry metrics, metrics will be disabled",
				"error", initErr,
				"service", serviceName)
		}
	})
}

// IsInitialized returns true if metrics have been successfully initialized.
func IsInitialized() bool {
	ensureInitialized()
	return initErr == nil
}

// IsObservabilityEnabled reports whether metrics collection is enabled.
func IsObservabilityEnabled() bool {
	return getEnvBoolOrDefault("ENABLE_OBSERVABILITY", true) &&
		getEnvBoolOrDefault("OTEL_METRICS_ENABLED", true)
}

// RegisterRoutes registers routes for label normalization. Static routes are
// kept as-is; templates with :id or {id} placeholders are matched against
// incoming paths. Call during service initialization.
func RegisterRoutes(routesList []string) {
	routesMu.Lock()
	defer routesMu.Unlock()

	for _, route := range routesList {
		normalized := strings.ReplaceAll(route, "{id}", ":id")
		if strings.Contains(normalized, ":id") {
			routeTemplates = append(routeTemplates, normalized)
		} else {
			routes[route] = true
		}
	}
}

// Handler returns the metrics HTTP handler. For the Prometheus exporter this
// serves the scrape endpoint; for OTLP it serves a status line.
func Handler() http.Handler {
	ensureInitialized()
	return otelHandler()
}

// HTTPMetricsMiddleware wraps an HTTP handler to record request count and
// latency per method, route and status.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	ensureInitialized()
	return otelHTTPMetricsMiddleware(next)
}

// RecordBusinessEvent records a domain event such as a scan outcome or a
// login attempt.
func RecordBusinessEvent(action, outcome string) {
	ensureInitialized()
	otelRecordBusinessEvent(action, outcome)
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizeRoute maps a request path to a registered route or template so
// dynamic segments (member numbers, filenames) do not explode label
// cardinality. Unrecognized paths become "unknown".
func normalizeRoute(path string) string {
	if path == "" || path == "/" {
		return "/"
	}

	parts := strings.Split(path, "/")
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return "/"
	}

	fullPath := "/" + strings.Join(parts, "/")

	routesMu.RLock()
	defer routesMu.RUnlock()
	if routes[fullPath] {
		return fullPath
	}

	for _, template := range routeTemplates {
		if matchesTemplate(template, parts) {
			return template
		}
	}

	// Fallback for unregistered routes: replace segments that look dynamic.
	if len(parts) == 1 {
		return "unknown"
	}
	if len(parts) == 2 {
		if looksLikeID(parts[1]) && !isCommonPathWord(parts[1]) {
			return "/" + parts[0] + "/:id"
		}
		return "unknown"
	}

	normalized := make([]string, len(parts))
	copy(normalized, parts)
	idFound := false
	for i, part := range parts {
		if i < 2 && len(part) <= 3 {
			continue // skip api version prefixes
		}
		if looksLikeID(part) && !isCommonPathWord(part) {
			normalized[i] = ":id"
			idFound = true
		}
	}
	if idFound && len(parts) <= 6 {
		return "/" + strings.Join(normalized, "/")
	}
	return "unknown"
}

// matchesTemplate checks if path segments match a route template.
func matchesTemplate(template string, pathParts []string) bool {
	templateParts := strings.Split(template, "/")
	if len(templateParts) > 0 && templateParts[0] == "" {
		templateParts = templateParts[1:]
	}
	if len(pathParts) != len(templateParts) {
		return false
	}
	for i := range pathParts {
		if templateParts[i] == ":id" {
			continue
		}
		if pathParts[i] != templateParts[i] {
			return false
		}
	}
	return true
}

// looksLikeID checks if a segment looks like a dynamic identifier: a member
// number, UUID, numeric ID, email, or uploaded filename.
func looksLikeID(s string) bool {
	if s == "" {
		return false
	}
	if len(s) == 36 && strings.Count(s, "-") == 4 {
		return true
	}
	if (strings.Contains(s, "_") || strings.Contains(s, "-")) && strings.ContainsAny(s, "0123456789") {
		return true
	}
	// Uploaded photo filenames carry an extension.
	if strings.Contains(s, ".") && len(s) >= 3 {
		return true
	}
	if strings.Contains(s, "@") {
		return true
	}
	allNumeric := true
	for _, r := range s {
		if r < '0' || r > '9' {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		return true
	}
	// Member numbers like "M0042" are short alphanumerics.
	if len(s) >= 4 {
		for _, r := range s {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				return false
			}
		}
		return true
	}
	return false
}

// isCommonPathWord filters path vocabulary that would otherwise match
// looksLikeID.
func isCommonPathWord(word string) bool {
	if len(word) <= 2 {
		return true
	}
	commonWords := map[string]bool{
		"api": true, "admin": true, "login": true, "logout": true,
		"verify": true, "scan": true, "members": true, "member": true,
		"attendance": true, "stats": true, "profile": true,
		"health": true, "metrics": true, "import": true, "create": true,
		"delete": true, "update": true, "upload": true, "photo": true,
	}
	return commonWords[strings.ToLower(word)]
}

// ObserveDatabaseCall records a database call with its duration and outcome.
func ObserveDatabaseCall(operation string, start time.Time, err error) {
	ensureInitialized()
	otelRecordExternalCall("database", operation, time.Since(start), err)
}
