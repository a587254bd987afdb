package ports

import (
	"context"
	"time"

	"labflow/internal/domain"
)

// ExperimentUpdate carries the fields of a partial experiment update.
// Nil fields are left untouched.
type ExperimentUpdate struct {
	Title        *string
	Description  *string
	ProtocolText *string
}

// ExperimentRepository is the data access interface for experiments and
// their steps. Implementations are fallible network or disk calls; none of
// the operations retries on its own.
type ExperimentRepository interface {
	// Create persists the experiment and its steps. Experiment and step
	// writes succeed or fail together.
	Create(ctx context.Context, experiment *domain.Experiment) error
	// List returns all experiments with nested steps, newest first.
	List(ctx context.Context) ([]*domain.Experiment, error)
	// GetByID returns the experiment or domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Experiment, error)
	// Update merges the given fields into the stored experiment.
	Update(ctx context.Context, id string, upd ExperimentUpdate) error
	// Start stamps the start time and assigns each step its scheduled time.
	// len(scheduledTimes) must equal the experiment's step count.
	Start(ctx context.Context, id string, startedAt time.Time, scheduledTimes []time.Time) error
	// CompleteStep marks the step at stepIndex complete and recomputes
	// progress from the full persisted step set. Completing an already
	// completed step is a no-op.
	CompleteStep(ctx context.Context, id string, stepIndex int, completedAt time.Time) error
	// Delete removes the experiment and its steps.
	Delete(ctx context.Context, id string) error
}
