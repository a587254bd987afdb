package ports

import (
	"context"
	"time"
)

// MetricsExporter exports operational counters to an external observability
// system. Implementations must be safe for concurrent use.
type MetricsExporter interface {
	// ExperimentCreated records a newly created experiment and its step count.
	ExperimentCreated(ctx context.Context, stepCount int)
	// StepCompleted records one completed step.
	StepCompleted(ctx context.Context, experimentID string)
	// ReminderFired records one fired reminder.
	ReminderFired(ctx context.Context)
	// ExtractionObserved records one extraction call with its latency and outcome.
	ExtractionObserved(ctx context.Context, d time.Duration, err error)
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}
