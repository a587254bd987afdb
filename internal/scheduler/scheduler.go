// Package scheduler keeps the pending reminder set and fires each reminder
// exactly once when its target time passes.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"labflow/internal/domain"
	"labflow/internal/logger"
	"labflow/internal/ports"
)

// DefaultCheckInterval is how often the due check runs while the scheduler
// is running.
const DefaultCheckInterval = time.Minute

// Scheduler owns the reminder set. Every reminder moves Pending -> Fired
// exactly once, driven by CheckDue. The persisted set survives restarts;
// reminders whose target time passed while the process was down fire on the
// first check rather than retroactively.
type Scheduler struct {
	mu        sync.Mutex
	store     ports.ReminderStore
	alerts    ports.Notifier
	push      ports.Notifier // optional best-effort channel, never authoritative
	metrics   ports.MetricsExporter
	reminders []domain.Reminder
	timers    map[string]*time.Timer

	now      func() time.Time
	interval time.Duration
}

// New loads the persisted reminder set and returns a ready scheduler.
// push may be nil when no best-effort native channel is available.
func New(store ports.ReminderStore, alerts ports.Notifier, push ports.Notifier, metrics ports.MetricsExporter) (*Scheduler, error) {
	reminders, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}

	return &Scheduler{
		store:     store,
		alerts:    alerts,
		push:      push,
		metrics:   metrics,
		reminders: reminders,
		timers:    make(map[string]*time.Timer),
		now:       time.Now,
		interval:  DefaultCheckInterval,
	}, nil
}

// Schedule registers a pending reminder for one experiment step. The target
// time is the step's scheduled time, or now when the step has none, meaning
// it fires on the next check.
func (s *Scheduler) Schedule(experimentID string, stepIndex int, step domain.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.now().UTC()
	if step.ScheduledTime != nil {
		target = step.ScheduledTime.UTC()
	}

	reminder := domain.Reminder{
		ID:           uuid.NewString(),
		Title:        "Experiment Step Reminder",
		Message:      step.Description,
		TargetTime:   target,
		ExperimentID: experimentID,
		StepIndex:    stepIndex,
	}
	s.reminders = append(s.reminders, reminder)

	if err := s.store.Save(s.reminders); err != nil {
		return fmt.Errorf("persist reminders: %w", err)
	}

	// Best-effort early push at the exact target time. Shown bookkeeping
	// stays with CheckDue regardless of whether this delivery happens.
	if s.push != nil {
		if wait := target.Sub(s.now()); wait > 0 {
			s.timers[reminder.ID] = time.AfterFunc(wait, func() { s.push.Notify(reminder) })
		}
	}

	logger.Debug("reminder scheduled", "experiment_id", experimentID, "step_index", stepIndex, "target_time", target)
	return nil
}

// CheckDue fires every pending reminder whose target time has passed and
// marks it shown. Calling it again never re-fires a reminder.
func (s *Scheduler) CheckDue(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	fired := 0
	for i := range s.reminders {
		r := s.reminders[i]
		if r.Shown || r.TargetTime.After(now) {
			continue
		}
		s.alerts.Notify(r)
		s.reminders[i].Shown = true
		s.metrics.ReminderFired(ctx)
		fired++
		logger.Info("reminder fired", "experiment_id", r.ExperimentID, "step_index", r.StepIndex)
	}

	if fired == 0 {
		return nil
	}
	if err := s.store.Save(s.reminders); err != nil {
		return fmt.Errorf("persist reminders: %w", err)
	}
	return nil
}

// Purge removes all reminders, pending or fired, for an experiment. The
// store adapter's delete path must call this.
func (s *Scheduler) Purge(experimentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.reminders[:0]
	for _, r := range s.reminders {
		if r.ExperimentID != experimentID {
			kept = append(kept, r)
			continue
		}
		if timer, ok := s.timers[r.ID]; ok {
			timer.Stop()
			delete(s.timers, r.ID)
		}
	}
	s.reminders = kept

	if err := s.store.Save(s.reminders); err != nil {
		return fmt.Errorf("persist reminders: %w", err)
	}
	return nil
}

// List returns a copy of the reminder set, newest target first.
func (s *Scheduler) List() []domain.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.Reminder(nil), s.reminders...)
	return out
}

// Run checks once immediately, then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.CheckDue(ctx); err != nil {
		logger.Error("reminder check failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.CheckDue(ctx); err != nil {
				logger.Error("reminder check failed", "error", err)
			}
		}
	}
}
