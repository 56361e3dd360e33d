package api

import (
	"encoding/json"
	"net/http"

	"fitstudio/internal/model"
)

type SettingRequest struct {
	Value     json.RawMessage `json:"value"`
	UpdatedBy string          `json:"updated_by,omitempty"`
}

type SettingResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// GET/PUT /api/settings/{key}
func (s *Server) handleSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	if key == model.OpeningHoursKey {
		writeError(w, http.StatusBadRequest, "opening hours are managed via /api/opening-hours")
		return
	}

	switch r.Method {
	case http.MethodGet:
		var value json.RawMessage
		found, err := s.settings.Get(r.Context(), key, &value)
		if err != nil {
			s.internalError(w, err, "load setting")
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "setting not found")
			return
		}
		writeJSON(w, http.StatusOK, SettingResponse{Key: key, Value: value})

	case http.MethodPut:
		var req SettingRequest
		if err := decodeBody(w, r, &req); err != nil || len(req.Value) == 0 {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if _, err := s.settings.Put(r.Context(), key, req.Value, req.UpdatedBy); err != nil {
			s.internalError(w, err, "save setting")
			return
		}
		writeJSON(w, http.StatusOK, SettingResponse{Key: key, Value: req.Value})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET or PUT")
	}
}
