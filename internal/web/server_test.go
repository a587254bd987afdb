package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labflow/internal/adapters/localstore"
	"labflow/internal/adapters/otel"
	"labflow/internal/domain"
	"labflow/internal/scheduler"
	"labflow/internal/service"
	"labflow/internal/web"
)

type stubExtractor struct {
	protocol *domain.ExtractedProtocol
	err      error
}

func (s *stubExtractor) Extract(_ context.Context, _ string) (*domain.ExtractedProtocol, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.protocol, nil
}

type silentNotifier struct{}

func (silentNotifier) Notify(domain.Reminder) {}

func testServer(t *testing.T, extractor *stubExtractor) *httptest.Server {
	t.Helper()

	root := t.TempDir()
	repo, err := localstore.NewExperimentStore(root)
	require.NoError(t, err)

	sched, err := scheduler.New(localstore.NewReminderStore(root), silentNotifier{}, nil, otel.NewNoOpExporter())
	require.NoError(t, err)

	svc := service.NewExperimentService(repo, sched, extractor, otel.NewNoOpExporter())
	srv := httptest.NewServer(web.NewServer(0, svc, sched).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func createPayload() map[string]any {
	return map[string]any{
		"title":         "Viability check",
		"description":   "Mix, incubate, count",
		"protocol_text": "Mix A and B. Incubate 10 min. Check viability.",
		"steps": []map[string]any{
			{"description": "Mix A and B", "estimatedDuration": 5},
			{"description": "Incubate", "estimatedDuration": 10},
			{"description": "Check viability"},
		},
	}
}

func TestExtractEndpoint(t *testing.T) {
	extractor := &stubExtractor{protocol: &domain.ExtractedProtocol{
		Title:       "Viability check",
		Description: "d",
		Steps:       []domain.ExtractedStep{{Description: "Mix A and B"}},
	}}
	srv := testServer(t, extractor)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/protocols/extract", map[string]string{"text": "Mix A and B."})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got domain.ExtractedProtocol
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Viability check", got.Title)
	require.Len(t, got.Steps, 1)
}

func TestExtractEndpointEmptyText(t *testing.T) {
	srv := testServer(t, &stubExtractor{})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/protocols/extract", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExtractEndpointUpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"auth", domain.ErrAuth, http.StatusBadGateway},
		{"schema", domain.ErrSchema, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, &stubExtractor{err: tt.err})
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/protocols/extract", map[string]string{"text": "some protocol"})
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestExperimentLifecycleOverHTTP(t *testing.T) {
	srv := testServer(t, &stubExtractor{})

	// Create from a confirmed extraction.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/experiments", createPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

	var created struct {
		ID       string `json:"id"`
		Progress int    `json:"progress"`
		Steps    []struct {
			Description string `json:"description"`
			Completed   bool   `json:"completed"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Steps, 3)
	assert.Equal(t, 0, created.Progress)
	assert.Equal(t, "Mix A and B", created.Steps[0].Description)

	// List contains it.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/experiments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	// Start assigns scheduled times and registers reminders.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/experiments/"+created.ID+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
	var started struct {
		StartedAt *string `json:"started_at"`
		Steps     []struct {
			ScheduledTime *string `json:"scheduled_time"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(body, &started))
	require.NotNil(t, started.StartedAt)
	for i, step := range started.Steps {
		assert.NotNil(t, step.ScheduledTime, "step %d", i)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reminders []struct {
		ExperimentID string `json:"experiment_id"`
		Shown        bool   `json:"shown"`
	}
	require.NoError(t, json.Unmarshal(body, &reminders))
	require.Len(t, reminders, 3)
	for _, r := range reminders {
		assert.Equal(t, created.ID, r.ExperimentID)
		assert.False(t, r.Shown)
	}

	// Complete two of three steps.
	for _, i := range []int{0, 1} {
		resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/experiments/%s/steps/%d/complete", srv.URL, created.ID, i), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
	}
	var completed struct {
		Progress int `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(body, &completed))
	assert.Equal(t, 67, completed.Progress)

	// Update merges fields.
	resp, body = doJSON(t, http.MethodPatch, srv.URL+"/api/experiments/"+created.ID, map[string]string{"title": "Renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Renamed", updated.Title)

	// Delete removes the experiment and its reminders.
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/experiments/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/experiments/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &reminders))
	assert.Empty(t, reminders)
}

func TestCreateExperimentValidation(t *testing.T) {
	srv := testServer(t, &stubExtractor{})

	payload := createPayload()
	payload["title"] = "  "
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/experiments", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload = createPayload()
	payload["steps"] = []map[string]any{{"estimatedDuration": 5}}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/experiments", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompleteStepBadIndex(t *testing.T) {
	srv := testServer(t, &stubExtractor{})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/experiments", createPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/experiments/"+created.ID+"/steps/oops/complete", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/experiments/"+created.ID+"/steps/9/complete", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMissingExperiment(t *testing.T) {
	srv := testServer(t, &stubExtractor{})
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/experiments/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
