package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/store"
)

// maxUploadBytes caps a single timecard document upload.
const maxUploadBytes = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, jobs.ErrInvalidState):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListJobs(w, r)
	case http.MethodPost:
		s.handleSubmitJob(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var f store.Filter
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := jobs.Status(strings.TrimSpace(part))
			if !status.Valid() {
				http.Error(w, "Unknown status: "+string(status), http.StatusBadRequest)
				return
			}
			f.Statuses = append(f.Statuses, status)
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		f.Limit = limit
	}

	list, err := s.store.ListJobs(f)
	if err != nil {
		logger.WithCorrelationID(getCorrelationID(r.Context())).
			Error().Err(err).Msg("Failed to list jobs")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// handleSubmitJob accepts either a multipart upload (field "file", optional
// "priority" and "type") or a JSON body referencing an already staged
// payload.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		s.handleUpload(w, r)
		return
	}

	var req struct {
		Type       string `json:"type"`
		FileName   string `json:"file_name"`
		FileSize   int64  `json:"file_size"`
		PayloadRef string `json:"payload_ref"`
		Priority   string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.PayloadRef == "" {
		http.Error(w, "payload_ref is required", http.StatusBadRequest)
		return
	}
	priority, err := jobs.ParsePriority(req.Priority)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.FileName == "" {
		req.FileName = filepath.Base(req.PayloadRef)
	}

	job, err := s.intake.Submit(req.Type, req.FileName, req.FileSize, req.PayloadRef, priority)
	if err != nil {
		log.Error().Err(err).Msg("Failed to submit job")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "A file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	priority, err := jobs.ParsePriority(r.FormValue("priority"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Stage the payload under a fresh name; the original name survives on
	// the job record only.
	ref := uuid.New().String() + strings.ToLower(filepath.Ext(header.Filename))
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		log.Error().Err(err).Msg("Failed to create upload directory")
		writeError(w, err)
		return
	}
	dst, err := os.Create(filepath.Join(s.uploadDir, ref))
	if err != nil {
		log.Error().Err(err).Msg("Failed to stage upload")
		writeError(w, err)
		return
	}
	size, err := io.Copy(dst, file)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to write upload")
		writeError(w, err)
		return
	}

	job, err := s.intake.Submit(r.FormValue("type"), header.Filename, size, ref, priority)
	if err != nil {
		log.Error().Err(err).Msg("Failed to submit job")
		writeError(w, err)
		return
	}
	log.Info().Str("job_id", job.ID).Str("file_name", header.Filename).Msg("Upload accepted")
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if rest == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}
	id, action, _ := strings.Cut(rest, "/")

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.handleGetJob(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		s.handleDeleteJob(w, r, id)
	case action == "cancel" && r.Method == http.MethodPost:
		s.handleCancelJob(w, r, id)
	case action == "stop" && r.Method == http.MethodPost:
		s.handleStopJob(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, id string) {
	job, err := s.store.GetJob(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, id string) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))

	job, err := s.store.CancelPending(id)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("job_id", id).Msg("Job cancelled")
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleStopJob(w http.ResponseWriter, r *http.Request, id string) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))

	if err := s.pool.StopJob(id); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("job_id", id).Msg("Stop requested")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": id,
		"status": "stopping",
	})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.DeleteJob(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		JobIDs []string `json:"job_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.JobIDs) == 0 {
		http.Error(w, "job_ids is required", http.StatusBadRequest)
		return
	}

	deleted := make([]string, 0, len(req.JobIDs))
	failed := make(map[string]string)
	for _, id := range req.JobIDs {
		if err := s.store.DeleteJob(id); err != nil {
			failed[id] = err.Error()
			continue
		}
		deleted = append(deleted, id)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"failed":  failed,
	})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.store.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":          stats,
		"active_workers": s.pool.ActiveCount(),
	})
}
