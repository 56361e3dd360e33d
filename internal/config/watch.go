package config

import (
	"context"
	"os"
	"reflect"
	"time"

	"github.com/rs/zerolog"
)

// WatchOpeningHours polls path and calls onChange when a newly written revision
// carries different hours than the last one seen. The file as it is when the
// watch starts is the baseline and is not delivered. Invalid revisions are
// logged and skipped.
func WatchOpeningHours(ctx context.Context, path string, interval time.Duration, logger zerolog.Logger, onChange func(*OpeningHoursConfig)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()
	last, err := LoadOpeningHours(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("opening hours baseline is invalid")
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			info, err := os.Stat(path)
			if err != nil || !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()

			cfg, err := LoadOpeningHours(path)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("skipping invalid opening hours revision")
				continue
			}
			if last != nil && reflect.DeepEqual(last.Defaults.Hours, cfg.Defaults.Hours) {
				continue
			}
			last = cfg
			if onChange != nil {
				onChange(cfg)
			}
		}
	}()

	return nil
}
