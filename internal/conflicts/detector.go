// Package conflicts finds booked sessions that proposed opening hours would displace.
package conflicts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"fitstudio/internal/metrics"
	"fitstudio/internal/model"
)

const (
	ReasonClosed       = "Studio closed on this day"
	reasonOutsideHours = "Outside new hours: %s-%s"

	clockLayout = "15:04"
	endOfDay    = "24:00"
)

// SessionSource lists bookings that are not cancelled, starting at or after from,
// ordered by start time.
type SessionSource interface {
	ListUpcomingSessions(ctx context.Context, from time.Time) ([]model.BookedSession, error)
}

// Detector checks booked sessions against proposed opening hours in the
// studio's time zone. It never modifies bookings.
type Detector struct {
	source SessionSource
	loc    *time.Location
	logger zerolog.Logger
}

func NewDetector(source SessionSource, loc *time.Location, logger zerolog.Logger) (*Detector, error) {
	if source == nil {
		return nil, errors.New("session source is required")
	}
	if loc == nil {
		return nil, errors.New("studio location is required")
	}
	return &Detector{
		source: source,
		loc:    loc,
		logger: logger.With().Str("component", "conflicts").Logger(),
	}, nil
}

// Location returns the studio time zone used for weekday and clock lookups.
func (d *Detector) Location() *time.Location {
	return d.loc
}

// Detect returns every booking from the local midnight of effective onward
// that falls outside week, in booking order.
func (d *Detector) Detect(ctx context.Context, week model.WeekHours, effective model.Date) ([]model.SessionConflict, error) {
	started := time.Now()

	sessions, err := d.source.ListUpcomingSessions(ctx, effective.Midnight(d.loc))
	if err != nil {
		return nil, fmt.Errorf("list upcoming sessions: %w", err)
	}

	conflicts := make([]model.SessionConflict, 0)
	for _, s := range sessions {
		if s.Status == model.SessionCancelled {
			continue
		}
		reason, ok := d.check(week, s)
		if !ok {
			continue
		}
		conflicts = append(conflicts, d.conflict(s, reason))
	}

	metrics.ObserveConflictScan(time.Since(started), len(conflicts))
	d.logger.Debug().
		Str("effective_from", effective.String()).
		Int("sessions", len(sessions)).
		Int("conflicts", len(conflicts)).
		Msg("conflict scan finished")

	return conflicts, nil
}

// check returns the conflict reason for s, if any.
func (d *Detector) check(week model.WeekHours, s model.BookedSession) (string, bool) {
	start := s.ScheduledStart.In(d.loc)
	end := s.ScheduledEnd.In(d.loc)

	day, ok := week[model.WeekdayOf(start.Weekday())]
	if !ok || !day.IsOpen || day.OpenTime == nil || day.CloseTime == nil {
		return ReasonClosed, true
	}

	startClock := start.Format(clockLayout)
	endClock := end.Format(clockLayout)
	past := false
	startDay := model.DateOf(start, d.loc)
	if endDay := model.DateOf(end, d.loc); endDay.After(startDay) {
		// Ending exactly at the next local midnight still fits a day closing at 24:00.
		if endDay == startDay.AddDays(1) && end.Equal(endDay.Midnight(d.loc)) {
			endClock = endOfDay
		} else {
			past = true
		}
	}

	if past || startClock < *day.OpenTime || endClock > *day.CloseTime {
		return fmt.Sprintf(reasonOutsideHours, *day.OpenTime, *day.CloseTime), true
	}
	return "", false
}

func (d *Detector) conflict(s model.BookedSession, reason string) model.SessionConflict {
	machine := model.UnbookedMachine
	if s.MachineNumber != nil {
		machine = strconv.Itoa(*s.MachineNumber)
	}
	return model.SessionConflict{
		SessionID:     s.ID,
		Date:          model.DateOf(s.ScheduledStart, d.loc).String(),
		StartTime:     s.ScheduledStart,
		EndTime:       s.ScheduledEnd,
		MemberName:    s.MemberName,
		MachineNumber: machine,
		Reason:        reason,
	}
}
