// Package service wires the experiment repository, the protocol extractor
// and the reminder scheduler into the operations the web and CLI surfaces
// call.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"labflow/internal/domain"
	"labflow/internal/logger"
	"labflow/internal/ports"
)

// ReminderScheduler is the slice of the scheduler the service needs.
type ReminderScheduler interface {
	Schedule(experimentID string, stepIndex int, step domain.Step) error
	Purge(experimentID string) error
}

// ExperimentService provides the experiment lifecycle operations.
type ExperimentService struct {
	repo      ports.ExperimentRepository
	scheduler ReminderScheduler
	extractor ports.ProtocolExtractor
	metrics   ports.MetricsExporter

	now func() time.Time
}

func NewExperimentService(repo ports.ExperimentRepository, sched ReminderScheduler, extractor ports.ProtocolExtractor, metrics ports.MetricsExporter) *ExperimentService {
	return &ExperimentService{
		repo:      repo,
		scheduler: sched,
		extractor: extractor,
		metrics:   metrics,
		now:       time.Now,
	}
}

// ExtractProtocol parses free-text protocol into a structured preview the
// user confirms before an experiment is created.
func (s *ExperimentService) ExtractProtocol(ctx context.Context, protocolText string) (*domain.ExtractedProtocol, error) {
	started := s.now()
	extracted, err := s.extractor.Extract(ctx, protocolText)
	s.metrics.ExtractionObserved(ctx, s.now().Sub(started), err)
	if err != nil {
		return nil, err
	}
	logger.Debug("protocol extracted", "title", extracted.Title, "steps", len(extracted.Steps))
	return extracted, nil
}

// CreateFromProtocol persists a new experiment built from an extracted
// protocol and returns it re-read from the store.
func (s *ExperimentService) CreateFromProtocol(ctx context.Context, extracted *domain.ExtractedProtocol, protocolText string) (*domain.Experiment, error) {
	steps := make([]domain.Step, len(extracted.Steps))
	for i, es := range extracted.Steps {
		steps[i] = domain.Step{
			Description:       es.Description,
			EstimatedDuration: es.EstimatedDuration,
		}
	}

	exp := &domain.Experiment{
		ID:          uuid.NewString(),
		Title:       extracted.Title,
		Description: extracted.Description,
		Steps:       steps,
		CreatedAt:   s.now().UTC(),
	}
	if protocolText != "" {
		exp.ProtocolText = &protocolText
	}

	if err := s.repo.Create(ctx, exp); err != nil {
		return nil, fmt.Errorf("create experiment: %w", err)
	}
	s.metrics.ExperimentCreated(ctx, len(steps))
	logger.Info("experiment created", "id", exp.ID, "title", exp.Title, "steps", len(steps))

	return s.repo.GetByID(ctx, exp.ID)
}

// List returns all experiments, newest first.
func (s *ExperimentService) List(ctx context.Context) ([]*domain.Experiment, error) {
	return s.repo.List(ctx)
}

// Get returns one experiment or domain.ErrNotFound.
func (s *ExperimentService) Get(ctx context.Context, id string) (*domain.Experiment, error) {
	return s.repo.GetByID(ctx, id)
}

// Update merges the given fields and returns the refreshed experiment.
func (s *ExperimentService) Update(ctx context.Context, id string, upd ports.ExperimentUpdate) (*domain.Experiment, error) {
	if err := s.repo.Update(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Start stamps the start time, assigns each step a cumulative scheduled
// time from its duration estimate, and registers one pending reminder per
// step. Steps with durations [5, 10] are scheduled at start+5m and
// start+15m.
func (s *ExperimentService) Start(ctx context.Context, id string) (*domain.Experiment, error) {
	exp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp.StartedAt != nil {
		return nil, fmt.Errorf("%w: experiment already started", domain.ErrValidation)
	}

	startedAt := s.now().UTC()
	next := startedAt
	scheduled := make([]time.Time, len(exp.Steps))
	for i, step := range exp.Steps {
		next = next.Add(time.Duration(step.DurationMinutes()) * time.Minute)
		scheduled[i] = next
	}

	if err := s.repo.Start(ctx, id, startedAt, scheduled); err != nil {
		return nil, fmt.Errorf("start experiment: %w", err)
	}

	for i, step := range exp.Steps {
		step.ScheduledTime = &scheduled[i]
		if err := s.scheduler.Schedule(id, i, step); err != nil {
			return nil, fmt.Errorf("schedule reminder for step %d: %w", i, err)
		}
	}
	logger.Info("experiment started", "id", id, "steps", len(exp.Steps))

	return s.repo.GetByID(ctx, id)
}

// CompleteStep marks one step complete and returns the refreshed
// experiment with its recomputed progress. Completing an already completed
// step leaves everything unchanged.
func (s *ExperimentService) CompleteStep(ctx context.Context, id string, stepIndex int) (*domain.Experiment, error) {
	if err := s.repo.CompleteStep(ctx, id, stepIndex, s.now().UTC()); err != nil {
		return nil, err
	}
	s.metrics.StepCompleted(ctx, id)
	return s.repo.GetByID(ctx, id)
}

// Delete removes the experiment and purges every reminder referencing it.
func (s *ExperimentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.scheduler.Purge(id); err != nil {
		return fmt.Errorf("purge reminders: %w", err)
	}
	logger.Info("experiment deleted", "id", id)
	return nil
}
