package model

import "time"

// Weekday is the fixed key of a day inside WeekHours.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// AllWeekdays lists the weekday keys Monday through Sunday.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf maps Go's weekday (0=Sun) to the studio key.
func WeekdayOf(d time.Weekday) Weekday {
	switch d {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// Valid reports whether w is one of the seven weekday keys.
func (w Weekday) Valid() bool {
	for _, d := range AllWeekdays {
		if d == w {
			return true
		}
	}
	return false
}

// DayHours is the opening configuration of a single weekday.
type DayHours struct {
	IsOpen    bool    `json:"is_open" yaml:"is_open"`
	OpenTime  *string `json:"open_time" yaml:"open_time"`   // "09:00"
	CloseTime *string `json:"close_time" yaml:"close_time"` // "21:00"
}

// Open builds an open day.
func Open(openAt, closeAt string) DayHours {
	return DayHours{IsOpen: true, OpenTime: &openAt, CloseTime: &closeAt}
}

// Closed builds a closed day.
func Closed() DayHours {
	return DayHours{}
}

// WeekHours maps every weekday key to its hours.
type WeekHours map[Weekday]DayHours

// Complete reports whether all seven weekdays are present.
func (w WeekHours) Complete() bool {
	for _, d := range AllWeekdays {
		if _, ok := w[d]; !ok {
			return false
		}
	}
	return true
}

// Normalize returns a copy where closed days carry no times.
func (w WeekHours) Normalize() WeekHours {
	out := make(WeekHours, len(w))
	for d, h := range w {
		if !h.IsOpen {
			h.OpenTime = nil
			h.CloseTime = nil
		}
		out[d] = h
	}
	return out
}
