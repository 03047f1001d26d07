package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ctfcast/internal/metrics"
	"ctfcast/internal/middleware"
	"ctfcast/internal/queue"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server exposes operational state: health, metrics and queue status.
type Server struct {
	router *mux.Router
	logger *logrus.Logger
	queue  *queue.DeliveryQueue
	port   int
	server *http.Server
}

func NewServer(port int, q *queue.DeliveryQueue, logger *logrus.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		queue:  q,
		port:   port,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
	s.router.HandleFunc("/queue", s.handleQueue()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Status   string `json:"status"`
	Degraded bool   `json:"degraded"`
	Pending  int    `json:"pending"`
}

// handleHealth reports liveness. Degraded persistence is surfaced here
// so an operator knows restart-safety is temporarily compromised.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:   "ok",
			Degraded: s.queue.Degraded(),
			Pending:  s.queue.Len(),
		}
		if resp.Degraded {
			resp.Status = "degraded"
		}

		s.writeJSON(w, resp)
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, metrics.GetAllMetrics())
	}
}

func (s *Server) handleQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, map[string]interface{}{
			"pending":  s.queue.Len(),
			"degraded": s.queue.Degraded(),
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
