package api

import (
	"bytes"
	"net/http"

	"fitstudio/internal/model"
	"fitstudio/internal/planner"
	"fitstudio/internal/report"
)

// HoursRequest is the body of preview, conflicts and save requests.
type HoursRequest struct {
	Hours         model.WeekHours `json:"hours"`
	EffectiveFrom *model.Date     `json:"effective_from,omitempty"` // YYYY-MM-DD, null = immediately
	CreatedBy     string          `json:"created_by,omitempty"`
}

type ConflictsResponse struct {
	EffectiveFrom *model.Date             `json:"effective_from"`
	Conflicts     []model.SessionConflict `json:"conflicts"`
}

type HistoryResponse struct {
	Versions []model.VersionedSetting `json:"versions"`
}

// GET returns the schedule in effect, PUT commits a new version.
func (s *Server) handleOpeningHours(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleCurrent(w, r)
	case http.MethodPut:
		s.handleSave(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET or PUT")
	}
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	var ref *model.Date
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := model.ParseDate(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		ref = &d
	}

	sched, err := s.planner.Current(r.Context(), ref)
	if err != nil {
		s.internalError(w, err, "load opening hours")
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// PUT /api/opening-hours
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readHoursRequest(w, r)
	if !ok {
		return
	}

	res, err := s.planner.Save(r.Context(), planner.SaveRequest{
		Hours:         req.Hours,
		EffectiveFrom: req.EffectiveFrom,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		s.internalError(w, err, "save opening hours")
		return
	}

	switch {
	case len(res.Errors) > 0:
		writeJSON(w, http.StatusUnprocessableEntity, res)
	case len(res.Conflicts) > 0:
		writeJSON(w, http.StatusConflict, res)
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

// GET /api/opening-hours/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	versions, err := s.planner.History(r.Context())
	if err != nil {
		s.internalError(w, err, "load opening hours history")
		return
	}
	if versions == nil {
		versions = []model.VersionedSetting{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Versions: versions})
}

// POST /api/opening-hours/preview
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	req, ok := s.readHoursRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.planner.Preview(req.Hours))
}

// POST /api/opening-hours/conflicts
func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	req, ok := s.readHoursRequest(w, r)
	if !ok {
		return
	}
	conflicts, err := s.planner.CheckConflicts(r.Context(), req.Hours, req.EffectiveFrom)
	if err != nil {
		s.internalError(w, err, "detect conflicts")
		return
	}
	if conflicts == nil {
		conflicts = []model.SessionConflict{}
	}
	writeJSON(w, http.StatusOK, ConflictsResponse{EffectiveFrom: req.EffectiveFrom, Conflicts: conflicts})
}

// POST /api/opening-hours/conflicts/export
func (s *Server) handleConflictsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	req, ok := s.readHoursRequest(w, r)
	if !ok {
		return
	}
	conflicts, err := s.planner.CheckConflicts(r.Context(), req.Hours, req.EffectiveFrom)
	if err != nil {
		s.internalError(w, err, "detect conflicts")
		return
	}

	var buf bytes.Buffer
	if err := report.WriteConflicts(&buf, conflicts, s.loc); err != nil {
		s.internalError(w, err, "write conflicts report")
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="opening_hours_conflicts.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) readHoursRequest(w http.ResponseWriter, r *http.Request) (*HoursRequest, bool) {
	var req HoursRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if req.Hours == nil {
		writeError(w, http.StatusBadRequest, "hours is required")
		return nil, false
	}
	for d := range req.Hours {
		if !d.Valid() {
			writeError(w, http.StatusBadRequest, "unknown weekday: "+string(d))
			return nil, false
		}
	}
	return &req, true
}
