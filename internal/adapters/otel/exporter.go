package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "labflow"
	serviceVersion = "1.0.0"
)

// Exporter exports experiment and reminder counters to an OTEL Collector.
type Exporter struct {
	provider         *sdkmetric.MeterProvider
	meter            metric.Meter
	experimentsTotal metric.Int64Counter
	stepsTotal       metric.Int64Counter
	remindersTotal   metric.Int64Counter
	extractionHist   metric.Float64Histogram
}

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTEL resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(30*time.Second))),
	)

	meter := provider.Meter(serviceName)

	e := &Exporter{provider: provider, meter: meter}

	if e.experimentsTotal, err = meter.Int64Counter("labflow.experiments.created",
		metric.WithDescription("Experiments created from extracted protocols")); err != nil {
		return nil, err
	}
	if e.stepsTotal, err = meter.Int64Counter("labflow.steps.completed",
		metric.WithDescription("Experiment steps marked complete")); err != nil {
		return nil, err
	}
	if e.remindersTotal, err = meter.Int64Counter("labflow.reminders.fired",
		metric.WithDescription("Reminders transitioned to fired")); err != nil {
		return nil, err
	}
	if e.extractionHist, err = meter.Float64Histogram("labflow.extraction.duration",
		metric.WithDescription("Protocol extraction latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Exporter) ExperimentCreated(ctx context.Context, stepCount int) {
	e.experimentsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("steps", stepCount)))
}

func (e *Exporter) StepCompleted(ctx context.Context, experimentID string) {
	e.stepsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("experiment_id", experimentID)))
}

func (e *Exporter) ReminderFired(ctx context.Context) {
	e.remindersTotal.Add(ctx, 1)
}

func (e *Exporter) ExtractionObserved(ctx context.Context, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.extractionHist.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// Close shuts down the meter provider, flushing pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
