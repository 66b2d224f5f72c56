// Package api is the HTTP control surface: job submission and lifecycle,
// the review queue, settings, health and metrics, and the websocket push
// endpoint.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/intake"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/review"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/store"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/websocket"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/worker"
)

type Server struct {
	store     store.JobStore
	intake    *intake.Intake
	pool      *worker.Pool
	gateway   *review.Gateway
	hub       *websocket.Hub
	uploadDir string
	port      string

	httpServer *http.Server
}

func NewServer(
	st store.JobStore,
	in *intake.Intake,
	pool *worker.Pool,
	gateway *review.Gateway,
	hub *websocket.Hub,
	uploadDir, port string,
) *Server {
	return &Server{
		store:     st,
		intake:    in,
		pool:      pool,
		gateway:   gateway,
		hub:       hub,
		uploadDir: uploadDir,
		port:      port,
	}
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	s.AddRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	logger.Logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// SetDBConnection wires the raw handle used only by the readiness probe.
func SetDBConnection(conn *sql.DB) {
	dbConn = conn
}
