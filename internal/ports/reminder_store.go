package ports

import "labflow/internal/domain"

// ReminderStore persists the scheduler's reminder set across restarts.
type ReminderStore interface {
	Load() ([]domain.Reminder, error)
	Save(reminders []domain.Reminder) error
}
