package hours

import (
	"strconv"
	"strings"

	"fitstudio/internal/model"
)

// SlotMinutes is the length of one bookable slot.
const SlotMinutes = 30

// SlotsPerDay returns the number of whole slots each weekday offers.
//
// The week is expected to have passed Validate. Malformed or missing times are
// not reported here; such a day simply counts as zero slots.
func SlotsPerDay(week model.WeekHours) map[model.Weekday]int {
	out := make(map[model.Weekday]int, len(model.AllWeekdays))
	for _, day := range model.AllWeekdays {
		out[day] = DaySlots(week[day])
	}
	return out
}

// TotalWeeklySlots sums SlotsPerDay.
func TotalWeeklySlots(week model.WeekHours) int {
	total := 0
	for _, n := range SlotsPerDay(week) {
		total += n
	}
	return total
}

// DaySlots returns floor((close-open)/SlotMinutes) for an open day, else 0.
func DaySlots(h model.DayHours) int {
	if !h.IsOpen || h.OpenTime == nil || h.CloseTime == nil {
		return 0
	}
	open, ok := Minutes(*h.OpenTime)
	if !ok {
		return 0
	}
	closing, ok := Minutes(*h.CloseTime)
	if !ok || closing <= open {
		return 0
	}
	return (closing - open) / SlotMinutes
}

// Minutes converts "HH:MM" to minutes since midnight.
func Minutes(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 24 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
