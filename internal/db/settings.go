package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitstudio/internal/model"
	"fitstudio/internal/settings"
)

var _ settings.Store = (*DB)(nil)

const settingColumns = `id, setting_key, setting_value, effective_from, is_active, created_by, created_at, updated_at`

// ActiveSetting returns the version of key in effect on ref.
func (db *DB) ActiveSetting(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error) {
	// Dated rows sort before the undated one, latest date first.
	row := db.QueryRowContext(ctx, `
		SELECT `+settingColumns+`
		FROM app_settings
		WHERE setting_key = ? AND is_active = 1
		  AND (effective_from IS NULL OR effective_from <= ?)
		ORDER BY effective_from IS NULL, effective_from DESC
		LIMIT 1`,
		key, ref.String(),
	)
	return scanSettingRow(row)
}

// ScheduledSetting returns the nearest version of key starting after ref.
func (db *DB) ScheduledSetting(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+settingColumns+`
		FROM app_settings
		WHERE setting_key = ? AND is_active = 1
		  AND effective_from IS NOT NULL AND effective_from > ?
		ORDER BY effective_from ASC
		LIMIT 1`,
		key, ref.String(),
	)
	return scanSettingRow(row)
}

// UpsertSetting replaces the version with the same key and effective date, or inserts s.
func (db *DB) UpsertSetting(ctx context.Context, s *model.VersionedSetting) (*model.VersionedSetting, error) {
	if s == nil {
		return nil, fmt.Errorf("setting is nil")
	}

	var effective any
	if s.EffectiveFrom != nil {
		effective = s.EffectiveFrom.String()
	}
	now := s.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE app_settings
		SET setting_value = ?, is_active = ?, created_by = ?, updated_at = ?
		WHERE setting_key = ? AND effective_from IS ?`,
		string(s.Value), s.IsActive, s.CreatedBy, now, s.Key, effective,
	)
	if err != nil {
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings (`+settingColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.Key, string(s.Value), effective, s.IsActive, s.CreatedBy, now, now,
		)
		if err != nil {
			return nil, err
		}
	}

	stored, err := scanSettingRow(tx.QueryRowContext(ctx, `
		SELECT `+settingColumns+`
		FROM app_settings
		WHERE setting_key = ? AND effective_from IS ?`,
		s.Key, effective,
	))
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("setting %s vanished after upsert", s.Key)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// ListSettingVersions returns all versions of key, the undated one first.
func (db *DB) ListSettingVersions(ctx context.Context, key string) ([]model.VersionedSetting, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+settingColumns+`
		FROM app_settings
		WHERE setting_key = ?
		ORDER BY effective_from IS NOT NULL, effective_from ASC`,
		key,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []model.VersionedSetting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *s)
	}
	return versions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettingRow(row rowScanner) (*model.VersionedSetting, error) {
	s, err := scanSetting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func scanSetting(row rowScanner) (*model.VersionedSetting, error) {
	var s model.VersionedSetting
	var value string
	var effective, createdBy sql.NullString
	if err := row.Scan(&s.ID, &s.Key, &value, &effective, &s.IsActive, &createdBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Value = []byte(value)
	if effective.Valid {
		d, err := model.ParseDate(effective.String)
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", s.ID, err)
		}
		s.EffectiveFrom = &d
	}
	if createdBy.Valid {
		s.CreatedBy = createdBy.String
	}
	return &s, nil
}
