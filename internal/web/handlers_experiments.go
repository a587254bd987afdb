package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"labflow/internal/domain"
	"labflow/internal/ports"
)

func (s *Server) handleAPIListExperiments(w http.ResponseWriter, r *http.Request) {
	experiments, err := s.experiments.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]experimentResponse, 0, len(experiments))
	for _, e := range experiments {
		out = append(out, toExperimentResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

type createExperimentRequest struct {
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Steps        []domain.ExtractedStep `json:"steps"`
	ProtocolText string                 `json:"protocol_text"`
}

func (s *Server) handleAPICreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req createExperimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, fmt.Errorf("%w: title is required", domain.ErrValidation))
		return
	}
	for i, step := range req.Steps {
		if strings.TrimSpace(step.Description) == "" {
			writeError(w, fmt.Errorf("%w: step %d has no description", domain.ErrValidation, i))
			return
		}
	}

	extracted := &domain.ExtractedProtocol{
		Title:       req.Title,
		Description: req.Description,
		Steps:       req.Steps,
	}
	exp, err := s.experiments.CreateFromProtocol(r.Context(), extracted, req.ProtocolText)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExperimentResponse(exp))
}

func (s *Server) handleAPIGetExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.experiments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExperimentResponse(exp))
}

type updateExperimentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) handleAPIUpdateExperiment(w http.ResponseWriter, r *http.Request) {
	var req updateExperimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, fmt.Errorf("%w: title cannot be blank", domain.ErrValidation))
		return
	}

	exp, err := s.experiments.Update(r.Context(), r.PathValue("id"), ports.ExperimentUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExperimentResponse(exp))
}

func (s *Server) handleAPIDeleteExperiment(w http.ResponseWriter, r *http.Request) {
	if err := s.experiments.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIStartExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.experiments.Start(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExperimentResponse(exp))
}

func (s *Server) handleAPICompleteStep(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, fmt.Errorf("%w: bad step index %q", domain.ErrValidation, r.PathValue("index")))
		return
	}

	exp, err := s.experiments.CompleteStep(r.Context(), r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExperimentResponse(exp))
}
