package domain

import "time"

// Reminder is a scheduled, at-most-once alert tied to one experiment step.
// Shown flips false to true exactly once, when a due check observes
// TargetTime <= now; it never flips back.
type Reminder struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	TargetTime   time.Time `json:"target_time"`
	ExperimentID string    `json:"experiment_id"`
	StepIndex    int       `json:"step_index"`
	Shown        bool      `json:"shown"`
}
