package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labflow/internal/domain"
)

func completionWith(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func testExtractor(t *testing.T, handler http.HandlerFunc) *Extractor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewExtractor(Config{APIKey: "test-key", BaseURL: srv.URL})
}

func TestExtractSuccess(t *testing.T) {
	var gotBody map[string]any
	extractor := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		content := `{
			"title": "Viability check",
			"description": "Mix, incubate, count",
			"steps": [
				{"description": "Mix A and B", "estimatedDuration": 5},
				{"description": "Incubate", "estimatedDuration": 10},
				{"description": "Check viability"}
			]
		}`
		require.NoError(t, json.NewEncoder(w).Encode(completionWith(content)))
	})

	got, err := extractor.Extract(context.Background(), "Mix A and B. Incubate 10 min. Check viability.")
	require.NoError(t, err)

	assert.Equal(t, "Viability check", got.Title)
	assert.Equal(t, "Mix, incubate, count", got.Description)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, "Mix A and B", got.Steps[0].Description)
	require.NotNil(t, got.Steps[1].EstimatedDuration)
	assert.EqualValues(t, 10, *got.Steps[1].EstimatedDuration)
	assert.Nil(t, got.Steps[2].EstimatedDuration)

	// The outbound request carries the lab instruction and the raw text.
	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "laboratory assistant")
	user := messages[1].(map[string]any)
	assert.Equal(t, "Mix A and B. Incubate 10 min. Check viability.", user["content"])
	assert.Equal(t, map[string]any{"type": "json_object"}, gotBody["response_format"])
}

func TestExtractEmptyInputSkipsNetwork(t *testing.T) {
	var calls atomic.Int64
	extractor := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := extractor.Extract(context.Background(), input)
		assert.ErrorIs(t, err, domain.ErrValidation, "input %q", input)
	}
	assert.EqualValues(t, 0, calls.Load(), "no network call expected for empty input")
}

func TestExtractErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrAuth},
		{"forbidden", http.StatusForbidden, domain.ErrAuth},
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"server error", http.StatusInternalServerError, domain.ErrService},
		{"bad gateway", http.StatusBadGateway, domain.ErrService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"error": {"message": "nope", "type": "test"}}`)
			})

			_, err := extractor.Extract(context.Background(), "some protocol")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractParseError(t *testing.T) {
	extractor := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(completionWith("here are your steps: 1. mix")))
	})

	_, err := extractor.Extract(context.Background(), "some protocol")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestExtractSchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing title", `{"description": "d", "steps": []}`},
		{"blank title", `{"title": "  ", "description": "d", "steps": []}`},
		{"missing description", `{"title": "t", "steps": []}`},
		{"missing steps", `{"title": "t", "description": "d"}`},
		{"mistyped steps", `{"title": "t", "description": "d", "steps": "mix then incubate"}`},
		{"mistyped title", `{"title": 42, "description": "d", "steps": []}`},
		{"step without description", `{"title": "t", "description": "d", "steps": [{"estimatedDuration": 5}]}`},
		{"mistyped duration", `{"title": "t", "description": "d", "steps": [{"description": "mix", "estimatedDuration": "five"}]}`},
		{"negative duration", `{"title": "t", "description": "d", "steps": [{"description": "mix", "estimatedDuration": -3}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				require.NoError(t, json.NewEncoder(w).Encode(completionWith(tt.content)))
			})

			_, err := extractor.Extract(context.Background(), "some protocol")
			assert.ErrorIs(t, err, domain.ErrSchema)
		})
	}
}

func TestExtractEmptyStepsAllowed(t *testing.T) {
	extractor := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(completionWith(`{"title": "t", "description": "d", "steps": []}`)))
	})

	got, err := extractor.Extract(context.Background(), "some protocol")
	require.NoError(t, err)
	assert.Empty(t, got.Steps)
}
