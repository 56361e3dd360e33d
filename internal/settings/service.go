// Package settings provides time-versioned keyed settings on top of a Store.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fitstudio/internal/model"
)

// ErrInvalidKey is returned for an empty settings key.
var ErrInvalidKey = errors.New("settings key is required")

// Store persists setting versions. Implementations enforce uniqueness of
// (key, effective_from), a nil effective date counting as one value.
type Store interface {
	// ActiveSetting returns the active version with the greatest effective date
	// not after ref, nil effective dates counting as the earliest. Nil if none.
	ActiveSetting(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error)

	// ScheduledSetting returns the active version with the smallest effective date after ref.
	ScheduledSetting(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error)

	// UpsertSetting inserts s or replaces the version sharing its key and effective date.
	// It returns the stored row.
	UpsertSetting(ctx context.Context, s *model.VersionedSetting) (*model.VersionedSetting, error)

	// ListSettingVersions returns every version of key, undated first, then by date.
	ListSettingVersions(ctx context.Context, key string) ([]model.VersionedSetting, error)
}

// Service reads and writes versioned settings.
type Service struct {
	store  Store
	cache  *Cache
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a settings service. loc is the studio calendar used for "today".
func NewService(store Store, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// UseCache enables the read-through cache for Active lookups.
func (s *Service) UseCache(c *Cache) {
	s.cache = c
}

// Today returns the current calendar date in the studio location.
func (s *Service) Today() model.Date {
	return model.DateOf(s.now(), s.loc)
}

// Active returns the version of key in effect on ref, or nil.
func (s *Service) Active(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	if cached, ok := s.cache.Get(ctx, key, ref); ok {
		return cached, nil
	}

	setting, err := s.store.ActiveSetting(ctx, key, ref)
	if err != nil {
		return nil, fmt.Errorf("get active setting %s: %w", key, err)
	}
	if setting != nil {
		s.cache.Set(ctx, key, ref, setting)
	}
	return setting, nil
}

// Scheduled returns the next version of key taking effect after ref, or nil.
func (s *Service) Scheduled(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	setting, err := s.store.ScheduledSetting(ctx, key, ref)
	if err != nil {
		return nil, fmt.Errorf("get scheduled setting %s: %w", key, err)
	}
	return setting, nil
}

// History returns all versions of key.
func (s *Service) History(ctx context.Context, key string) ([]model.VersionedSetting, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	versions, err := s.store.ListSettingVersions(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list setting versions %s: %w", key, err)
	}
	return versions, nil
}

// Save stores value as the version of key effective from effectiveFrom.
// A nil effectiveFrom means effective immediately. An existing version with the
// same key and date is replaced.
func (s *Service) Save(ctx context.Context, key string, value any, effectiveFrom *model.Date, createdBy string) (*model.VersionedSetting, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode setting %s: %w", key, err)
	}

	now := s.now()
	saved, err := s.store.UpsertSetting(ctx, &model.VersionedSetting{
		ID:            uuid.NewString(),
		Key:           key,
		Value:         raw,
		EffectiveFrom: effectiveFrom,
		IsActive:      true,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("save setting %s: %w", key, err)
	}
	s.cache.Evict(ctx, key)

	ev := s.logger.Info().Str("key", key).Str("id", saved.ID)
	if effectiveFrom != nil {
		ev = ev.Str("effective_from", effectiveFrom.String())
	}
	ev.Msg("setting saved")
	return saved, nil
}

// Get decodes the current undated-or-past value of key into out.
// It reports false when the key has never been set.
func (s *Service) Get(ctx context.Context, key string, out any) (bool, error) {
	setting, err := s.Active(ctx, key, s.Today())
	if err != nil {
		return false, err
	}
	if setting == nil {
		return false, nil
	}
	if err := json.Unmarshal(setting.Value, out); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

// Put stores value as the undated version of key ("latest wins").
func (s *Service) Put(ctx context.Context, key string, value any, createdBy string) (*model.VersionedSetting, error) {
	return s.Save(ctx, key, value, nil, createdBy)
}
