// Package openai implements protocol extraction against the OpenAI
// chat-completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"labflow/internal/domain"
)

const systemPrompt = `You are a laboratory assistant that extracts experimental protocols into structured steps.
Parse the protocol into a title, description, and a series of steps with estimated durations in minutes.
Focus on laboratory procedures, especially those involving cell cultures and biological experiments.
For each step, try to estimate a realistic duration based on common lab practices.
Reply with a JSON object: {"title": string, "description": string, "steps": [{"description": string, "estimatedDuration": number}]}.`

const defaultModel = openai.ChatModelGPT4oMini

// Config holds extraction client configuration.
type Config struct {
	APIKey  string
	BaseURL string // override for tests and compatible providers
	Model   string
}

// Extractor sends protocol text to the completion service and validates the
// structured reply. It keeps no state between calls and never retries; the
// caller decides whether a failed extraction is worth re-invoking.
type Extractor struct {
	client openai.Client
	model  openai.ChatModel
}

func NewExtractor(cfg Config) *Extractor {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := defaultModel
	if cfg.Model != "" {
		model = openai.ChatModel(cfg.Model)
	}

	return &Extractor{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Extract parses free-text protocol into a structured protocol. Empty input
// fails with domain.ErrValidation before any network call is made.
func (e *Extractor) Extract(ctx context.Context, protocolText string) (*domain.ExtractedProtocol, error) {
	if strings.TrimSpace(protocolText) == "" {
		return nil, fmt.Errorf("%w: protocol text is empty", domain.ErrValidation)
	}

	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(protocolText),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return nil, mapAPIError(err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: empty completion reply", domain.ErrService)
	}

	return parseReply(completion.Choices[0].Message.Content)
}

func mapAPIError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", domain.ErrAuth, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrService, err)
}

type replyStep struct {
	Description       string   `json:"description"`
	EstimatedDuration *float64 `json:"estimatedDuration"`
}

type reply struct {
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Steps       []replyStep `json:"steps"`
}

// parseReply validates the completion reply: invalid JSON is ErrParse,
// valid JSON with a missing or mistyped field is ErrSchema. Nothing is
// silently coerced.
func parseReply(content string) (*domain.ExtractedProtocol, error) {
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("%w: %.80s", domain.ErrParse, content)
	}

	var r reply
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}

	if strings.TrimSpace(r.Title) == "" {
		return nil, fmt.Errorf("%w: missing title", domain.ErrSchema)
	}
	if r.Description == nil {
		return nil, fmt.Errorf("%w: missing description", domain.ErrSchema)
	}
	if r.Steps == nil {
		return nil, fmt.Errorf("%w: missing steps", domain.ErrSchema)
	}

	extracted := &domain.ExtractedProtocol{
		Title:       r.Title,
		Description: *r.Description,
		Steps:       make([]domain.ExtractedStep, 0, len(r.Steps)),
	}
	for i, step := range r.Steps {
		if strings.TrimSpace(step.Description) == "" {
			return nil, fmt.Errorf("%w: step %d has no description", domain.ErrSchema, i)
		}
		out := domain.ExtractedStep{Description: step.Description}
		if step.EstimatedDuration != nil {
			if *step.EstimatedDuration < 0 {
				return nil, fmt.Errorf("%w: step %d has negative duration", domain.ErrSchema, i)
			}
			mins := int64(math.Round(*step.EstimatedDuration))
			out.EstimatedDuration = &mins
		}
		extracted.Steps = append(extracted.Steps, out)
	}
	return extracted, nil
}
