package web

import "labflow/internal/domain"

type stepResponse struct {
	Description       string  `json:"description"`
	EstimatedDuration *int64  `json:"estimated_duration,omitempty"`
	ScheduledTime     *string `json:"scheduled_time,omitempty"`
	Completed         bool    `json:"completed"`
	CompletedAt       *string `json:"completed_at,omitempty"`
}

type experimentResponse struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Steps        []stepResponse `json:"steps"`
	ProtocolText *string        `json:"protocol_text,omitempty"`
	Progress     int            `json:"progress"`
	CreatedAt    string         `json:"created_at"`
	StartedAt    *string        `json:"started_at,omitempty"`
	CompletedAt  *string        `json:"completed_at,omitempty"`
}

type reminderResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	TargetTime   string `json:"target_time"`
	ExperimentID string `json:"experiment_id"`
	StepIndex    int    `json:"step_index"`
	Shown        bool   `json:"shown"`
}

func toExperimentResponse(e *domain.Experiment) experimentResponse {
	steps := make([]stepResponse, len(e.Steps))
	for i, s := range e.Steps {
		steps[i] = stepResponse{
			Description:       s.Description,
			EstimatedDuration: s.EstimatedDuration,
			ScheduledTime:     timeString(s.ScheduledTime),
			Completed:         s.Completed,
			CompletedAt:       timeString(s.CompletedAt),
		}
	}
	return experimentResponse{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Steps:        steps,
		ProtocolText: e.ProtocolText,
		Progress:     e.Progress,
		CreatedAt:    e.CreatedAt.UTC().Format(timeLayout),
		StartedAt:    timeString(e.StartedAt),
		CompletedAt:  timeString(e.CompletedAt),
	}
}
