package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"labflow/internal/logger"
	"labflow/internal/scheduler"
	"labflow/internal/service"
)

// Server exposes the JSON API the single-page frontend talks to.
type Server struct {
	router      *http.ServeMux
	port        int
	experiments *service.ExperimentService
	reminders   *scheduler.Scheduler
}

func NewServer(port int, experiments *service.ExperimentService, reminders *scheduler.Scheduler) *Server {
	s := &Server{
		router:      http.NewServeMux(),
		port:        port,
		experiments: experiments,
		reminders:   reminders,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Protocol extraction
	s.router.HandleFunc("POST /api/protocols/extract", s.handleAPIExtractProtocol)

	// Experiments
	s.router.HandleFunc("GET /api/experiments", s.handleAPIListExperiments)
	s.router.HandleFunc("POST /api/experiments", s.handleAPICreateExperiment)
	s.router.HandleFunc("GET /api/experiments/{id}", s.handleAPIGetExperiment)
	s.router.HandleFunc("PATCH /api/experiments/{id}", s.handleAPIUpdateExperiment)
	s.router.HandleFunc("DELETE /api/experiments/{id}", s.handleAPIDeleteExperiment)
	s.router.HandleFunc("POST /api/experiments/{id}/start", s.handleAPIStartExperiment)
	s.router.HandleFunc("POST /api/experiments/{id}/steps/{index}/complete", s.handleAPICompleteStep)

	// Reminder feed for the frontend poll
	s.router.HandleFunc("GET /api/notifications", s.handleAPINotifications)
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil // Graceful shutdown
	}
	return err
}
