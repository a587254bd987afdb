package domain

// ExtractedProtocol is the transient result of parsing free-text protocol
// into structured steps. It is consumed once to build an Experiment.
type ExtractedProtocol struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Steps       []ExtractedStep `json:"steps"`
}

// ExtractedStep is one parsed protocol step with an optional duration
// estimate in minutes.
type ExtractedStep struct {
	Description       string `json:"description"`
	EstimatedDuration *int64 `json:"estimatedDuration,omitempty"`
}
