package model

import (
	"encoding/json"
	"time"
)

// OpeningHoursKey is the settings key holding WeekHours versions.
const OpeningHoursKey = "opening_hours"

// VersionedSetting is one dated version of a keyed setting.
// A nil EffectiveFrom means the version applies from creation on.
type VersionedSetting struct {
	ID            string          `json:"id"`
	Key           string          `json:"key"`
	Value         json.RawMessage `json:"value"`
	EffectiveFrom *Date           `json:"effective_from"`
	IsActive      bool            `json:"is_active"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EffectiveOn reports whether the version is in effect on ref.
func (s *VersionedSetting) EffectiveOn(ref Date) bool {
	return s.EffectiveFrom == nil || !s.EffectiveFrom.After(ref)
}

// WeekHours decodes the value as opening hours.
func (s *VersionedSetting) WeekHours() (WeekHours, error) {
	var w WeekHours
	if err := json.Unmarshal(s.Value, &w); err != nil {
		return nil, err
	}
	return w, nil
}
