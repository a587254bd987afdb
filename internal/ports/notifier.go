package ports

import "labflow/internal/domain"

// Notifier delivers a user-visible alert for a reminder. The scheduler's
// Pending/Fired bookkeeping is the source of truth for delivery; a Notifier
// that drops an alert does not un-fire the reminder.
type Notifier interface {
	Notify(reminder domain.Reminder)
}
