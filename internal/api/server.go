// Package api exposes opening hours planning over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"fitstudio/internal/metrics"
	"fitstudio/internal/model"
	"fitstudio/internal/planner"
)

// Planner is the opening hours workflow behind the API.
type Planner interface {
	Preview(week model.WeekHours) planner.Preview
	CheckConflicts(ctx context.Context, week model.WeekHours, effective *model.Date) ([]model.SessionConflict, error)
	Save(ctx context.Context, req planner.SaveRequest) (*planner.SaveResult, error)
	Current(ctx context.Context, ref *model.Date) (*planner.Schedule, error)
	History(ctx context.Context) ([]model.VersionedSetting, error)
}

// SettingsKV is the latest-wins store for keys other than opening hours.
type SettingsKV interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Put(ctx context.Context, key string, value any, createdBy string) (*model.VersionedSetting, error)
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves the studio JSON API.
type Server struct {
	planner  Planner
	settings SettingsKV
	loc      *time.Location
	limiter  *WriteLimiter
	logger   zerolog.Logger
	handler  http.Handler
}

// NewServer builds the API. limiter may be nil to disable write limits.
func NewServer(p Planner, kv SettingsKV, loc *time.Location, limiter *WriteLimiter, logger zerolog.Logger) *Server {
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{
		planner:  p,
		settings: kv,
		loc:      loc,
		limiter:  limiter,
		logger:   logger.With().Str("component", "api").Logger(),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/opening-hours", s.instrument("opening_hours", s.handleOpeningHours))
	mux.HandleFunc("/api/opening-hours/history", s.instrument("opening_hours_history", s.handleHistory))
	mux.HandleFunc("/api/opening-hours/preview", s.instrument("opening_hours_preview", s.handlePreview))
	mux.HandleFunc("/api/opening-hours/conflicts", s.instrument("opening_hours_conflicts", s.handleConflicts))
	mux.HandleFunc("/api/opening-hours/conflicts/export", s.instrument("opening_hours_conflicts_export", s.handleConflictsExport))
	mux.HandleFunc("/api/settings/{key}", s.instrument("settings", s.handleSetting))
	return mux
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", addr).Msg("api server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isWrite(r.Method) && !s.limiter.Allow(r) {
			metrics.IncHTTPRequest(route, strconv.Itoa(http.StatusTooManyRequests))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		metrics.IncHTTPRequest(route, strconv.Itoa(rec.status))
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(started)).
			Msg("request")
	}
}

func isWrite(method string) bool {
	return method == http.MethodPost || method == http.MethodPut
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, err error, msg string) {
	s.logger.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}
