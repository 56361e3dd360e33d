// Package hours validates weekly opening hours and derives slot capacity from them.
package hours

import (
	"regexp"

	"fitstudio/internal/model"
)

// Validation messages reported per weekday.
const (
	MsgDayMissing    = "Day configuration is missing"
	MsgTimesRequired = "Opening and closing times are required"
	MsgInvalidFormat = "Invalid time format (expected HH:MM)"
	MsgCloseNotAfter = "Closing time must be after opening time"
)

var timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Validate checks every open day of week and returns one message per failing weekday.
// An empty map means the week is valid. Closed days are not inspected.
func Validate(week model.WeekHours) map[model.Weekday]string {
	errs := make(map[model.Weekday]string)
	for _, day := range model.AllWeekdays {
		h, ok := week[day]
		if !ok {
			errs[day] = MsgDayMissing
			continue
		}
		if msg := ValidateDay(h); msg != "" {
			errs[day] = msg
		}
	}
	return errs
}

// ValidateDay returns the first problem with a single day, or "".
func ValidateDay(h model.DayHours) string {
	if !h.IsOpen {
		return ""
	}
	if h.OpenTime == nil || h.CloseTime == nil {
		return MsgTimesRequired
	}
	if !timePattern.MatchString(*h.OpenTime) || !timePattern.MatchString(*h.CloseTime) {
		return MsgInvalidFormat
	}
	// Fixed-width zero-padded strings order the same way as the times they encode.
	if *h.CloseTime <= *h.OpenTime {
		return MsgCloseNotAfter
	}
	return ""
}
