package otel

import (
	"context"
	"time"
)

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) ExperimentCreated(ctx context.Context, stepCount int) {}

func (e *NoOpExporter) StepCompleted(ctx context.Context, experimentID string) {}

func (e *NoOpExporter) ReminderFired(ctx context.Context) {}

func (e *NoOpExporter) ExtractionObserved(ctx context.Context, d time.Duration, err error) {}

func (e *NoOpExporter) Close(ctx context.Context) error { return nil }
