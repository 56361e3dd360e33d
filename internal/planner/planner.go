// Package planner drives opening hours changes: validate, preview, check
// conflicts with booked sessions, then commit a new version.
package planner

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"fitstudio/internal/events"
	"fitstudio/internal/hours"
	"fitstudio/internal/metrics"
	"fitstudio/internal/model"
)

// SettingsStore reads and writes versioned settings in the studio calendar.
type SettingsStore interface {
	Today() model.Date
	Active(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error)
	Scheduled(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error)
	History(ctx context.Context, key string) ([]model.VersionedSetting, error)
	Save(ctx context.Context, key string, value any, effectiveFrom *model.Date, createdBy string) (*model.VersionedSetting, error)
}

// ConflictDetector lists booked sessions that week would displace from effective on.
type ConflictDetector interface {
	Detect(ctx context.Context, week model.WeekHours, effective model.Date) ([]model.SessionConflict, error)
}

// EventPublisher announces committed changes.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// Preview is the capacity of a draft along with its validation errors.
type Preview struct {
	Errors      map[model.Weekday]string `json:"errors"`
	SlotsPerDay map[model.Weekday]int    `json:"slots_per_day"`
	TotalSlots  int                      `json:"total_slots"`
}

// Valid reports whether the draft has no validation errors.
func (p Preview) Valid() bool {
	return len(p.Errors) == 0
}

// SaveRequest is a draft to commit as a new opening hours version.
type SaveRequest struct {
	Hours         model.WeekHours
	EffectiveFrom *model.Date // nil: effective immediately
	CreatedBy     string
}

// SaveResult reports what Save did. Saved is false when Errors or Conflicts
// is non-empty.
type SaveResult struct {
	Saved     bool                     `json:"saved"`
	Errors    map[model.Weekday]string `json:"errors,omitempty"`
	Conflicts []model.SessionConflict  `json:"conflicts,omitempty"`
	Setting   *model.VersionedSetting  `json:"setting,omitempty"`
}

// Schedule holds the opening hours in effect on a date and the next change, if any.
type Schedule struct {
	Date          model.Date              `json:"date"`
	Active        *model.VersionedSetting `json:"active"`
	ActiveHours   model.WeekHours         `json:"active_hours"`
	Scheduled     *model.VersionedSetting `json:"scheduled"`
	ScheduledFrom *model.Date             `json:"scheduled_from"`
}

// Planner validates, checks and commits opening hours changes.
type Planner struct {
	settings  SettingsStore
	detector  ConflictDetector
	publisher EventPublisher
	logger    zerolog.Logger
}

// New builds a planner. publisher may be nil.
func New(settings SettingsStore, detector ConflictDetector, publisher EventPublisher, logger zerolog.Logger) *Planner {
	return &Planner{
		settings:  settings,
		detector:  detector,
		publisher: publisher,
		logger:    logger.With().Str("component", "planner").Logger(),
	}
}

// Preview validates week and computes its slot capacity.
func (p *Planner) Preview(week model.WeekHours) Preview {
	return Preview{
		Errors:      hours.Validate(week),
		SlotsPerDay: hours.SlotsPerDay(week),
		TotalSlots:  hours.TotalWeeklySlots(week),
	}
}

// CheckConflicts lists booked sessions from effective on that week would displace.
// A nil effective date means today in the studio time zone.
func (p *Planner) CheckConflicts(ctx context.Context, week model.WeekHours, effective *model.Date) ([]model.SessionConflict, error) {
	return p.detector.Detect(ctx, week, p.effectiveDate(effective))
}

// Save commits req.Hours as a new version unless it is invalid or conflicts
// with booked sessions.
func (p *Planner) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	log := p.logger.With().Str("created_by", req.CreatedBy).Logger()
	if req.EffectiveFrom != nil {
		log = log.With().Str("effective_from", req.EffectiveFrom.String()).Logger()
	}

	if errs := hours.Validate(req.Hours); len(errs) > 0 {
		metrics.IncSave(metrics.ResultInvalid)
		log.Info().Int("errors", len(errs)).Msg("opening hours rejected by validation")
		return &SaveResult{Errors: errs}, nil
	}

	conflicts, err := p.detector.Detect(ctx, req.Hours, p.effectiveDate(req.EffectiveFrom))
	if err != nil {
		metrics.IncSave(metrics.ResultError)
		return nil, fmt.Errorf("detect conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		metrics.IncSave(metrics.ResultConflicts)
		log.Info().Int("conflicts", len(conflicts)).Msg("opening hours blocked by booked sessions")
		return &SaveResult{Conflicts: conflicts}, nil
	}

	week := req.Hours.Normalize()
	saved, err := p.settings.Save(ctx, model.OpeningHoursKey, week, req.EffectiveFrom, req.CreatedBy)
	if err != nil {
		metrics.IncSave(metrics.ResultError)
		return nil, fmt.Errorf("save opening hours: %w", err)
	}
	metrics.IncSave(metrics.ResultSaved)
	log.Info().Str("setting_id", saved.ID).Msg("opening hours saved")

	p.publishSaved(saved, week)
	return &SaveResult{Saved: true, Setting: saved}, nil
}

func (p *Planner) publishSaved(saved *model.VersionedSetting, week model.WeekHours) {
	if p.publisher == nil {
		return
	}
	payload := events.OpeningHoursSavedPayload{
		SettingID:     saved.ID,
		EffectiveFrom: saved.EffectiveFrom,
		Hours:         week,
		TotalSlots:    hours.TotalWeeklySlots(week),
		CreatedBy:     saved.CreatedBy,
	}
	// The version is committed; subscriber failures are only logged.
	if err := p.publisher.PublishJSON(events.OpeningHoursSaved, payload); err != nil {
		p.logger.Warn().Err(err).Str("setting_id", saved.ID).Msg("opening hours event handlers failed")
	}
}

// Current returns the opening hours in effect on ref and the next scheduled change.
// A nil ref means today in the studio time zone.
func (p *Planner) Current(ctx context.Context, ref *model.Date) (*Schedule, error) {
	day := p.effectiveDate(ref)
	sched := &Schedule{Date: day}

	active, err := p.settings.Active(ctx, model.OpeningHoursKey, day)
	if err != nil {
		return nil, fmt.Errorf("active opening hours: %w", err)
	}
	if active != nil {
		week, err := active.WeekHours()
		if err != nil {
			return nil, fmt.Errorf("decode opening hours %s: %w", active.ID, err)
		}
		sched.Active = active
		sched.ActiveHours = week
	}

	next, err := p.settings.Scheduled(ctx, model.OpeningHoursKey, day)
	if err != nil {
		return nil, fmt.Errorf("scheduled opening hours: %w", err)
	}
	if next != nil {
		sched.Scheduled = next
		sched.ScheduledFrom = next.EffectiveFrom
	}
	return sched, nil
}

// History returns every opening hours version.
func (p *Planner) History(ctx context.Context) ([]model.VersionedSetting, error) {
	versions, err := p.settings.History(ctx, model.OpeningHoursKey)
	if err != nil {
		return nil, fmt.Errorf("opening hours history: %w", err)
	}
	return versions, nil
}

// EnsureDefault stores week as the undated version when no opening hours exist yet.
// It returns true if it wrote anything.
func (p *Planner) EnsureDefault(ctx context.Context, week model.WeekHours, createdBy string) (bool, error) {
	if errs := hours.Validate(week); len(errs) > 0 {
		return false, fmt.Errorf("default opening hours are invalid: %v", errs)
	}
	versions, err := p.settings.History(ctx, model.OpeningHoursKey)
	if err != nil {
		return false, fmt.Errorf("opening hours history: %w", err)
	}
	if len(versions) > 0 {
		return false, nil
	}
	saved, err := p.settings.Save(ctx, model.OpeningHoursKey, week.Normalize(), nil, createdBy)
	if err != nil {
		return false, fmt.Errorf("save default opening hours: %w", err)
	}
	p.logger.Info().Str("setting_id", saved.ID).Msg("default opening hours applied")
	return true, nil
}

// ApplyDefault replaces the undated version with week when they differ. The
// change goes through Save, so it is checked against sessions booked from today
// and comes back unsaved when blocked. An unchanged week returns a result with
// Saved false and the stored version as Setting.
func (p *Planner) ApplyDefault(ctx context.Context, week model.WeekHours, createdBy string) (*SaveResult, error) {
	versions, err := p.settings.History(ctx, model.OpeningHoursKey)
	if err != nil {
		return nil, fmt.Errorf("opening hours history: %w", err)
	}
	for i := range versions {
		if versions[i].EffectiveFrom != nil {
			continue
		}
		stored, err := versions[i].WeekHours()
		if err == nil && reflect.DeepEqual(stored, week.Normalize()) {
			return &SaveResult{Setting: &versions[i]}, nil
		}
		break
	}
	return p.Save(ctx, SaveRequest{Hours: week, CreatedBy: createdBy})
}

func (p *Planner) effectiveDate(d *model.Date) model.Date {
	if d != nil {
		return *d
	}
	return p.settings.Today()
}
