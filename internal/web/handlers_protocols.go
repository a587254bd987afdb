package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"labflow/internal/domain"
)

type extractRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAPIExtractProtocol(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, fmt.Errorf("%w: protocol text is empty", domain.ErrValidation))
		return
	}

	extracted, err := s.experiments.ExtractProtocol(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extracted)
}

func (s *Server) handleAPINotifications(w http.ResponseWriter, r *http.Request) {
	reminders := s.reminders.List()

	// ?shown=true|false filters the feed; default is everything.
	if filter := r.URL.Query().Get("shown"); filter != "" {
		wantShown := filter == "true"
		filtered := reminders[:0]
		for _, rem := range reminders {
			if rem.Shown == wantShown {
				filtered = append(filtered, rem)
			}
		}
		reminders = filtered
	}

	out := make([]reminderResponse, 0, len(reminders))
	for _, rem := range reminders {
		out = append(out, reminderResponse{
			ID:           rem.ID,
			Title:        rem.Title,
			Message:      rem.Message,
			TargetTime:   rem.TargetTime.UTC().Format(timeLayout),
			ExperimentID: rem.ExperimentID,
			StepIndex:    rem.StepIndex,
			Shown:        rem.Shown,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
