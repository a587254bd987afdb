package domain

import "errors"

// Local input and store errors.
var (
	// ErrNotFound is returned when an experiment id does not exist.
	ErrNotFound = errors.New("experiment not found")
	// ErrValidation is returned for bad local input, before any network call.
	ErrValidation = errors.New("invalid input")
)

// Extraction errors surfaced by the protocol extraction adapter. The caller
// decides whether to retry; the adapter never retries on its own.
var (
	// ErrAuth indicates invalid completion-service credentials.
	ErrAuth = errors.New("invalid completion service credentials")
	// ErrRateLimited indicates the completion service asked us to back off.
	ErrRateLimited = errors.New("completion service rate limit exceeded")
	// ErrParse indicates the reply was not valid JSON.
	ErrParse = errors.New("completion reply is not valid JSON")
	// ErrSchema indicates valid JSON with a wrong or incomplete shape.
	ErrSchema = errors.New("completion reply has unexpected shape")
	// ErrService covers any other completion-service failure.
	ErrService = errors.New("completion service request failed")
)
