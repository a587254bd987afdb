package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"labflow/internal/domain"
	"labflow/internal/ports"
)

// ExperimentStore is a file-backed ExperimentRepository for offline use.
// The full experiment list lives in memory and is flushed to disk on every
// mutation, which mirrors the original client's localStorage behavior.
type ExperimentStore struct {
	mu          sync.Mutex
	path        string
	experiments []*domain.Experiment
}

func NewExperimentStore(rootPath string) (*ExperimentStore, error) {
	s := &ExperimentStore{path: filepath.Join(rootPath, "experiments.json")}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read experiments file: %w", err)
	}
	if err := json.Unmarshal(data, &s.experiments); err != nil {
		return nil, fmt.Errorf("decode experiments file: %w", err)
	}
	return s, nil
}

func (s *ExperimentStore) Create(_ context.Context, experiment *domain.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.experiments {
		if e.ID == experiment.ID {
			return fmt.Errorf("experiment %s already exists", experiment.ID)
		}
	}
	s.experiments = append(s.experiments, cloneExperiment(experiment))
	return s.flush()
}

func (s *ExperimentStore) List(_ context.Context) ([]*domain.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Experiment, len(s.experiments))
	for i, e := range s.experiments {
		out[i] = cloneExperiment(e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *ExperimentStore) GetByID(_ context.Context, id string) (*domain.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(id)
	if e == nil {
		return nil, domain.ErrNotFound
	}
	return cloneExperiment(e), nil
}

func (s *ExperimentStore) Update(_ context.Context, id string, upd ports.ExperimentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(id)
	if e == nil {
		return domain.ErrNotFound
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.ProtocolText != nil {
		text := *upd.ProtocolText
		e.ProtocolText = &text
	}
	return s.flush()
}

func (s *ExperimentStore) Start(_ context.Context, id string, startedAt time.Time, scheduledTimes []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(id)
	if e == nil {
		return domain.ErrNotFound
	}
	if len(scheduledTimes) != len(e.Steps) {
		return fmt.Errorf("%w: %d scheduled times for %d steps", domain.ErrValidation, len(scheduledTimes), len(e.Steps))
	}

	started := startedAt.UTC()
	e.StartedAt = &started
	for i := range e.Steps {
		st := scheduledTimes[i].UTC()
		e.Steps[i].ScheduledTime = &st
	}
	return s.flush()
}

func (s *ExperimentStore) CompleteStep(_ context.Context, id string, stepIndex int, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(id)
	if e == nil {
		return domain.ErrNotFound
	}
	if stepIndex < 0 || stepIndex >= len(e.Steps) {
		return domain.ErrNotFound
	}
	if e.Steps[stepIndex].Completed {
		return nil
	}

	done := completedAt.UTC()
	e.Steps[stepIndex].Completed = true
	e.Steps[stepIndex].CompletedAt = &done
	e.Progress = domain.ComputeProgress(e.Steps)
	if e.Progress == 100 {
		e.CompletedAt = &done
	}
	return s.flush()
}

func (s *ExperimentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.experiments {
		if e.ID == id {
			s.experiments = append(s.experiments[:i], s.experiments[i+1:]...)
			return s.flush()
		}
	}
	return domain.ErrNotFound
}

func (s *ExperimentStore) find(id string) *domain.Experiment {
	for _, e := range s.experiments {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (s *ExperimentStore) flush() error {
	experiments := s.experiments
	if experiments == nil {
		experiments = []*domain.Experiment{}
	}
	data, err := json.MarshalIndent(experiments, "", "  ")
	if err != nil {
		return fmt.Errorf("encode experiments: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func cloneExperiment(e *domain.Experiment) *domain.Experiment {
	out := *e
	out.Steps = append([]domain.Step(nil), e.Steps...)
	return &out
}
