package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/config"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
)

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.store.AllSettings()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPost:
		s.handleUpdateSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleUpdateSettings validates the whole batch before persisting any of
// it, so a typo in one key cannot leave the set half applied.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(getCorrelationID(r.Context()))

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req) == 0 {
		http.Error(w, "No settings provided", http.StatusBadRequest)
		return
	}

	for key, value := range req {
		if err := config.ValidateSetting(key, value); err != nil {
			http.Error(w, key+": "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	for key, value := range req {
		if err := s.store.SetSetting(key, value); err != nil {
			writeError(w, err)
			return
		}
		log.Info().Str("key", key).Str("value", value).Msg("Setting updated")
	}

	settings, err := s.store.AllSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSettingByKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/settings/")
	if key == "" {
		http.Error(w, "Setting key is required", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	value, ok, err := s.store.GetSetting(key)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "Setting not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}
