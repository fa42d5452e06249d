package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultMetricInterval = 10 * time.Second

type Config struct {
	ServiceName    string
	ServiceVersion string
	// TraceFile and MetricsFile select rotating files; empty means stdout.
	TraceFile      string
	MetricsFile    string
	MetricInterval time.Duration
}

// Telemetry owns the global tracer and meter providers installed by Init.
type Telemetry struct {
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	closers []io.Closer
}

// Init installs stdout-style trace and metric exporters as the global OTel
// providers.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "portfolio-chat"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	t := &Telemetry{}
	traceOut, err := t.output(cfg.TraceFile)
	if err != nil {
		return nil, err
	}
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(traceOut))
	if err != nil {
		t.closeFiles()
		return nil, fmt.Errorf("telemetry: create trace exporter: %w", err)
	}

	metricsOut, err := t.output(cfg.MetricsFile)
	if err != nil {
		t.closeFiles()
		return nil, err
	}
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(metricsOut))
	if err != nil {
		t.closeFiles()
		return nil, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}

	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}

	t.tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	t.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(t.tp)
	otel.SetMeterProvider(t.mp)
	return t, nil
}

// Flush exports pending spans and metrics. Lambda calls it after every
// invocation since the process may be frozen before the next export tick.
func (t *Telemetry) Flush(ctx context.Context) error {
	return errors.Join(t.tp.ForceFlush(ctx), t.mp.ForceFlush(ctx))
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	err := errors.Join(t.tp.Shutdown(ctx), t.mp.Shutdown(ctx))
	return errors.Join(err, t.closeFiles())
}

func (t *Telemetry) output(path string) (io.Writer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return os.Stdout, nil
	}
	f, err := rotatingFile(path)
	if err != nil {
		return nil, err
	}
	t.closers = append(t.closers, f)
	return f, nil
}

func (t *Telemetry) closeFiles() error {
	var errs []error
	for _, c := range t.closers {
		errs = append(errs, c.Close())
	}
	t.closers = nil
	return errors.Join(errs...)
}
