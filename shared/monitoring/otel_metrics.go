package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// Custom attribute keys under the "membership." namespace. Standard semantic
// conventions are used for HTTP metrics.
const (
	attrBusinessAction    = "membership.business.action"
	attrBusinessOutcome   = "membership.business.outcome"
	attrExternalTarget    = "membership.external.target"
	attrExternalOperation = "membership.external.operation"
)

var (
	httpRequestsCounter   metric.Int64Counter
	httpRequestDuration   metric.Float64Histogram
	externalCallsCounter  metric.Int64Counter
	externalCallErrors    metric.Int64Counter
	externalCallDuration  metric.Float64Histogram
	businessEventsCounter metric.Int64Counter
	metricsHandler        http.Handler
	initialized           int32
	otelInitOnce          sync.Once
)

// Config holds the configuration for OpenTelemetry metrics.
type Config struct {
	// ExporterType can be "prometheus", "otlp", or "none"
	ExporterType string
	// ServiceName identifies this service in exported metrics
	ServiceName string
	// ServiceVersion defaults to "dev" when SERVICE_VERSION is unset
	ServiceVersion string
	// OTLPEndpoint is the OTLP collector URL
	OTLPEndpoint string
	// OTLPHeaders are additional headers for the OTLP exporter (API keys etc.)
	OTLPHeaders map[string]string
	// OTLPTLSInsecure allows plain HTTP endpoints, for development only
	OTLPTLSInsecure bool
	// HistogramBuckets override the duration bucket boundaries in seconds
	HistogramBuckets []float64
}

// DefaultConfig returns a configuration read from the environment.
func DefaultConfig(serviceName string) Config {
	return Config{
		ExporterType:     getEnvOrDefault("OTEL_METRICS_EXPORTER", "prometheus"),
		ServiceName:      serviceName,
		ServiceVersion:   getEnvOrDefault("SERVICE_VERSION", "dev"),
		OTLPEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPHeaders:      parseHeaders(getEnvOrDefault("OTEL_EXPORTER_OTLP_HEADERS", "")),
		OTLPTLSInsecure:  getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		HistogramBuckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}
}

// Initialize sets up OpenTelemetry metrics with the given configuration.
// Thread-safe; only the first call performs initialization.
func Initialize(config Config) error {
	var err error
	otelInitOnce.Do(func() {
		err = initializeInternal(context.Background(), config)
		if err == nil {
			atomic.StoreInt32(&initialized, 1)
		}
	})
	return err
}

func initializeInternal(ctx context.Context, config Config) error {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var reader sdkmetric.Reader

	switch config.ExporterType {
	case "prometheus", "":
		reg := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		reader = exporter
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		slog.Info("Initialized OpenTelemetry metrics with Prometheus exporter",
			"service", config.ServiceName)

	case "otlp":
		if config.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP exporter")
		}
		endpointURL, err := url.Parse(config.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("invalid OTLP endpoint URL: %w", err)
		}
		if endpointURL.Scheme != "https" && !config.OTLPTLSInsecure {
			return fmt.Errorf("OTLP endpoint must use HTTPS (got: %s); set OTEL_EXPORTER_OTLP_INSECURE=true to allow insecure connections", endpointURL.Scheme)
		}

		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(endpointURL.Host),
		}
		if config.OTLPTLSInsecure && endpointURL.Scheme == "http" {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(config.OTLPHeaders) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(config.OTLPHeaders))
		}

		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second))
		metricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("# Metrics exported via OTLP\n"))
		})
		slog.Info("Initialized OpenTelemetry metrics with OTLP exporter",
			"service", config.ServiceName,
			"endpoint", config.OTLPEndpoint)

	case "none":
		reader = sdkmetric.NewManualReader()
		metricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("# Metrics disabled\n"))
		})
		slog.Info("OpenTelemetry metrics disabled", "service", config.ServiceName)

	default:
		return fmt.Errorf("unknown exporter type: %s (supported: prometheus, otlp, none)", config.ExporterType)
	}

	buckets := config.HistogramBuckets
	if len(buckets) == 0 {
		buckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "http_request_duration_seconds"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: buckets,
				},
			},
		)),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "external_call_duration_seconds"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: buckets,
				},
			},
		)),
	)
	otel.SetMeterProvider(meterProvider)

	meter := otel.Meter("membership")

	httpRequestsCounter, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	externalCallsCounter, err = meter.Int64Counter(
		"external_calls_total",
		metric.WithDescription("Total number of external service calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create external_calls_total counter: %w", err)
	}

	externalCallErrors, err = meter.Int64Counter(
		"external_call_errors_total",
		metric.WithDescription("Total number of failed external service calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create external_call_errors_total counter: %w", err)
	}

	externalCallDuration, err = meter.Float64Histogram(
		"external_call_duration_seconds",
		metric.WithDescription("External service call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create external_call_duration_seconds histogram: %w", err)
	}

	businessEventsCounter, err = meter.Int64Counter(
		"business_events_total",
		metric.WithDescription("Total number of business events"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create business_events_total counter: %w", err)
	}

	return nil
}

func otelHandler() http.Handler {
	if atomic.LoadInt32(&initialized) == 0 || metricsHandler == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("# Metrics not initialized\n"))
		})
	}
	return metricsHandler
}

func otelHTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&initialized) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()

		// 404s are labeled "unknown" to prevent cardinality explosion.
		route := normalizeRoute(r.URL.Path)
		if rw.statusCode == http.StatusNotFound {
			route = "unknown"
		}

		httpRequestsCounter.Add(context.Background(), 1,
			metric.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(rw.statusCode),
			),
		)
		httpRequestDuration.Record(context.Background(), duration,
			metric.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
			),
		)
	})
}

func otelRecordExternalCall(target, operation string, duration time.Duration, err error) {
	if atomic.LoadInt32(&initialized) == 0 {
		return
	}

	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String(attrExternalTarget, target),
		attribute.String(attrExternalOperation, operation),
	)

	externalCallsCounter.Add(ctx, 1, attrs)
	externalCallDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		externalCallErrors.Add(ctx, 1, attrs)
	}
}

func otelRecordBusinessEvent(action, outcome string) {
	if atomic.LoadInt32(&initialized) == 0 {
		return
	}

	businessEventsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(attrBusinessAction, action),
			attribute.String(attrBusinessOutcome, outcome),
		),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes" || value == "on"
}

func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}
	for _, pair := range strings.Split(headerStr, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
