// Package telemetry wires OpenTelemetry tracing and metrics for passport views.
// Traces go to an OTLP collector, metrics are scraped by Prometheus.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/consts"
	"github.com/petmvp/passportview/pkg/logger"
)

const (
	exporterDialTimeout   = 10 * time.Second
	metricsServerTimeout  = 10 * time.Second
	defaultPrometheusPort = 9090
	metricsPath           = "/metrics"
)

// Config holds the telemetry configuration
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	// OTLP exports view and section spans
	OTLP OTLPConfig `yaml:"otlp"`
	// Prometheus serves the view, lookup and HTTP metrics
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// OTLPConfig configures the OTLP gRPC trace exporter
type OTLPConfig struct {
	Enabled bool `yaml:"enabled"`
	// Endpoint is the collector address, e.g. "localhost:4317"
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// PrometheusConfig configures the metrics endpoint
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Telemetry owns the providers installed as otel globals and the metrics server.
type Telemetry struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metricsServer  *http.Server
	metricsAddr    string
}

// New installs the tracer and meter providers described by cfg.
// With telemetry disabled the otel no-op globals stay in place and the
// Record* helpers keep working against them.
func New(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		logger.Info("Telemetry is disabled")
		return &Telemetry{config: cfg}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = consts.ServiceName
	}
	if cfg.Prometheus.Port == 0 {
		cfg.Prometheus.Port = defaultPrometheusPort
	}

	// resource.New instead of resource.Merge with Default() avoids semconv schema URL conflicts
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(consts.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{config: cfg}

	t.tracerProvider, err = newTracerProvider(ctx, res, cfg.OTLP)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(t.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.meterProvider, err = newMeterProvider(res, cfg.Prometheus.Enabled)
	if err != nil {
		_ = t.tracerProvider.Shutdown(ctx)
		return nil, err
	}
	otel.SetMeterProvider(t.meterProvider)

	if cfg.Prometheus.Enabled {
		if err := t.startMetricsServer(cfg.Prometheus.Port); err != nil {
			_ = t.Shutdown(ctx)
			return nil, err
		}
	}

	logger.Info("Telemetry initialized",
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("otlp_enabled", cfg.OTLP.Enabled),
		zap.String("metrics_addr", t.metricsAddr),
	)
	return t, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, cfg OTLPConfig) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if cfg.Enabled && cfg.Endpoint != "" {
		dialCtx, cancel := context.WithTimeout(ctx, exporterDialTimeout)
		defer cancel()

		exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(dialCtx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Info("OTLP trace exporter initialized", zap.String("endpoint", cfg.Endpoint))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(res *resource.Resource, withPrometheus bool) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if withPrometheus {
		exporter, err := prometheus.New(prometheus.WithoutScopeInfo())
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exporter))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

// startMetricsServer binds before returning so a taken port fails startup.
func (t *Telemetry) startMetricsServer(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to bind metrics server: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.Handler())
	t.metricsServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  metricsServerTimeout,
		WriteTimeout: metricsServerTimeout,
	}
	t.metricsAddr = ln.Addr().String()

	go func() {
		logger.Info("Starting Prometheus metrics server", zap.String("addr", t.metricsAddr))
		if err := t.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Prometheus metrics server error", zap.Error(err))
		}
	}()
	return nil
}

// MetricsAddr is the bound address of the metrics server, empty when it is not running.
func (t *Telemetry) MetricsAddr() string {
	return t.metricsAddr
}

// Shutdown flushes pending spans and stops the metrics server.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if !t.config.Enabled {
		return nil
	}
	logger.Info("Shutting down telemetry")

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if t.metricsServer != nil {
		if err := t.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsEnabled reports whether telemetry is enabled
func (t *Telemetry) IsEnabled() bool {
	return t.config.Enabled
}
