// Package notify provides reminder alert channels.
package notify

import (
	"labflow/internal/domain"
	"labflow/internal/logger"
)

// LogNotifier surfaces fired reminders through the structured log. It is
// the server-side stand-in for the browser toast; the frontend reads the
// authoritative reminder state from the notifications feed.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(r domain.Reminder) {
	logger.Info(r.Title,
		"message", r.Message,
		"experiment_id", r.ExperimentID,
		"step_index", r.StepIndex,
		"target_time", r.TargetTime,
	)
}
