package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/pkg/logger"
)

const (
	// MeterName is the default meter name for the application
	MeterName = "github.com/petmvp/passportview"
)

// Metrics holds all application metrics
type Metrics struct {
	// View metrics
	ViewsTotal      metric.Int64Counter
	ViewDuration    metric.Float64Histogram
	ActiveViews     metric.Int64UpDownCounter
	SectionFailures metric.Int64Counter

	// Backend metrics
	DoctorLookups   metric.Int64Counter
	BackendRequests metric.Float64Histogram

	// Export metrics
	ExportsTotal   metric.Int64Counter
	ExportDuration metric.Float64Histogram

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

type counterSpec struct {
	dst  *metric.Int64Counter
	name string
	desc string
	unit string
}

type histogramSpec struct {
	dst     *metric.Float64Histogram
	name    string
	desc    string
	buckets []float64
}

func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}

	counters := []counterSpec{
		{&m.ViewsTotal, "passportview_views_total", "Total number of passport views rendered", "{view}"},
		{&m.SectionFailures, "passportview_section_failures_total", "Total number of sections that failed to render", "{section}"},
		{&m.DoctorLookups, "passportview_doctor_lookups_total", "Total number of doctor lookups issued to the backend", "{lookup}"},
		{&m.ExportsTotal, "passportview_exports_total", "Total number of passport exports", "{export}"},
		{&m.HTTPRequestsTotal, "passportview_http_requests_total", "Total number of HTTP requests", "{request}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	histograms := []histogramSpec{
		{&m.ViewDuration, "passportview_view_duration_seconds", "Duration of passport renders in seconds",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}},
		{&m.BackendRequests, "passportview_backend_request_duration_seconds", "Duration of backend API calls in seconds",
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}},
		{&m.ExportDuration, "passportview_export_duration_seconds", "Duration of passport exports in seconds",
			[]float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30}},
		{&m.HTTPRequestDuration, "passportview_http_request_duration_seconds", "Duration of HTTP requests in seconds",
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		)
		if err != nil {
			return nil, err
		}
		*h.dst = hist
	}

	var err error
	m.ActiveViews, err = meter.Int64UpDownCounter(
		"passportview_active_views",
		metric.WithDescription("Number of passport renders in progress"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Metrics initialized successfully")
	return m, nil
}

// RecordViewStarted records that a passport render has started
func (m *Metrics) RecordViewStarted(ctx context.Context, language string) {
	if m.ViewsTotal != nil {
		m.ViewsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("language", language)))
	}
	if m.ActiveViews != nil {
		m.ActiveViews.Add(ctx, 1)
	}
}

// RecordViewCompleted records that a passport render has finished
func (m *Metrics) RecordViewCompleted(ctx context.Context, status string, durationSeconds float64) {
	if m.ActiveViews != nil {
		m.ActiveViews.Add(ctx, -1)
	}
	if m.ViewDuration != nil {
		m.ViewDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(attribute.String("status", status)),
		)
	}
}

// RecordSectionFailure records a section whose population failed
func (m *Metrics) RecordSectionFailure(ctx context.Context, section string) {
	if m.SectionFailures == nil {
		return
	}
	m.SectionFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("section", section)))
}

// RecordDoctorLookup records a doctor lookup; shared marks lookups served by an in-flight or memoized call
func (m *Metrics) RecordDoctorLookup(ctx context.Context, success, shared bool) {
	if m.DoctorLookups == nil {
		return
	}
	m.DoctorLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.Bool("shared", shared),
	))
}

// RecordBackendRequest records a backend API call
func (m *Metrics) RecordBackendRequest(ctx context.Context, endpoint string, statusCode int, durationSeconds float64) {
	if m.BackendRequests == nil {
		return
	}
	m.BackendRequests.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Int("status_code", statusCode),
	))
}

// RecordExport records a passport export
func (m *Metrics) RecordExport(ctx context.Context, format string, success bool, durationSeconds float64) {
	if m.ExportsTotal != nil {
		m.ExportsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("format", format),
			attribute.Bool("success", success),
		))
	}
	if m.ExportDuration != nil {
		m.ExportDuration.Record(ctx, durationSeconds, metric.WithAttributes(attribute.String("format", format)))
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
				attribute.Int("status_code", statusCode),
			),
		)
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
			),
		)
	}
}
