package domain

import (
	"math"
	"time"
)

// Experiment is a tracked execution of a lab protocol, composed of ordered steps.
type Experiment struct {
	ID           string
	Title        string
	Description  string
	Steps        []Step
	ProtocolText *string
	Progress     int
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Step is one unit of work within an experiment. Ordering is the slice index.
type Step struct {
	Description       string
	EstimatedDuration *int64 // minutes
	ScheduledTime     *time.Time
	Completed         bool
	CompletedAt       *time.Time
}

// ComputeProgress returns the completion percentage for a set of steps,
// rounded to the nearest integer. An experiment with no steps is 0% complete.
func ComputeProgress(steps []Step) int {
	completed := 0
	for _, s := range steps {
		if s.Completed {
			completed++
		}
	}
	return ProgressOf(completed, len(steps))
}

// ProgressOf returns round(100 * completed / total), or 0 when total is 0.
func ProgressOf(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// DurationMinutes returns the step's estimated duration, defaulting to
// one minute when no estimate was extracted.
func (s Step) DurationMinutes() int64 {
	if s.EstimatedDuration == nil || *s.EstimatedDuration <= 0 {
		return 1
	}
	return *s.EstimatedDuration
}
