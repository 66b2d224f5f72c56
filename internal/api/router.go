package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/websocket"
)

type contextKey string

const correlationKey contextKey = "correlation_id"

func (s *Server) AddRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/jobs", correlationMiddleware(s.handleJobs))
	mux.HandleFunc("/api/jobs/bulk-delete", correlationMiddleware(s.handleBulkDelete))
	mux.HandleFunc("/api/jobs/", correlationMiddleware(s.handleJobByID))
	mux.HandleFunc("/api/queue/stats", correlationMiddleware(s.handleQueueStats))
	mux.HandleFunc("/api/review-queue", correlationMiddleware(s.handleReviewQueue))
	mux.HandleFunc("/api/review-queue/bulk-decide", correlationMiddleware(s.handleBulkDecide))
	mux.HandleFunc("/api/review-queue/", correlationMiddleware(s.handleReviewByID))
	mux.HandleFunc("/api/settings", correlationMiddleware(s.handleSettings))
	mux.HandleFunc("/api/settings/", correlationMiddleware(s.handleSettingByKey))
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.HandleWebSocket(s.hub, w, r)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", HandleHealth)
	mux.HandleFunc("/health/ready", HandleReadiness)
	mux.HandleFunc("/health/live", HandleLiveness)
}

func correlationMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), correlationKey, correlationID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Correlation-ID", correlationID)
		next(w, r)
	}
}

func getCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey).(string); ok {
		return id
	}
	return ""
}
