package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
)

type decisionRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment"`
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.gateway.ListPending()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

func (s *Server) handleReviewByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/review-queue/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || action != "decide" || r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	job, err := s.gateway.Decide(id, req.Approve, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	logger.WithCorrelationID(getCorrelationID(r.Context())).
		Info().Str("job_id", id).Bool("approved", req.Approve).Msg("Review decision applied")
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleBulkDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		JobIDs []string `json:"job_ids"`
		decisionRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.JobIDs) == 0 {
		http.Error(w, "job_ids is required", http.StatusBadRequest)
		return
	}

	outcome := s.gateway.BulkDecide(req.JobIDs, req.Approve, req.Comment)
	writeJSON(w, http.StatusOK, outcome)
}
