package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"dailyindex/internal/config"
)

func testTelemetryConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		ServiceName:   "dailyindex-test",
		Environment:   "test",
		EnableTracing: true,
		TraceExporter: "none",
		SampleRatio:   1,
		EnableMetrics: true,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(testTelemetryConfig(), discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelInitialization_Disabled(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.EnableTracing = false
	cfg.EnableMetrics = false

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Meter, "a no-op meter is always available")
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelInitialization_UnsupportedExporter(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.TraceExporter = "zipkin"

	_, err := InitializeOTel(cfg, discardLogger())
	assert.ErrorContains(t, err, "unsupported trace exporter")
}

func TestTraceIDFromContext(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.TraceExporter = "stdout"
	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.Empty(t, TraceIDFromContext(context.Background()))

	ctx, span := providers.Tracer.Start(context.Background(), "merge")
	defer span.End()
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))

	// helpers must not panic on a recording span
	SetSpanAttributes(ctx, attribute.String("index", "DAX"))
	RecordError(ctx, assert.AnError)
}

func TestBusinessMetricsExposedOnPrometheus(t *testing.T) {
	providers, err := InitializeOTel(testTelemetryConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.TableUploads.Add(ctx, 2, metric.WithAttributes(attribute.String("status", "success")))
	metrics.TableEntries.Record(ctx, 5)
	metrics.HTTPRequestsTotal.Add(ctx, 1)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "table_uploads_total")
	assert.Contains(t, body, `status="success"`)
	assert.Contains(t, body, "table_entries")
	assert.Contains(t, body, "go_goroutines")
}

func TestNoopBusinessMetrics(t *testing.T) {
	metrics := NoopBusinessMetrics()
	require.NotNil(t, metrics)
	assert.NotPanics(t, func() {
		metrics.TableResets.Add(context.Background(), 1)
		metrics.TableMergeDuration.Record(context.Background(), 0.01)
	})
}
