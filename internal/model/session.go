package model

import "time"

// SessionStatus is the lifecycle state of a booked session.
type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

// BookedSession is an existing reservation of a studio machine.
type BookedSession struct {
	ID             int64         `json:"id"`
	ScheduledStart time.Time     `json:"scheduled_start"`
	ScheduledEnd   time.Time     `json:"scheduled_end"`
	Status         SessionStatus `json:"status"`
	MemberName     *string       `json:"member_name,omitempty"`
	MachineNumber  *int          `json:"machine_number,omitempty"`
}

// UnbookedMachine is reported when a session has no machine attached.
const UnbookedMachine = "Unbooked"

// SessionConflict describes a session falling outside proposed hours.
type SessionConflict struct {
	SessionID     int64     `json:"session_id"`
	Date          string    `json:"date"` // YYYY-MM-DD, studio local
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	MemberName    *string   `json:"member_name"`
	MachineNumber string    `json:"machine_number"`
	Reason        string    `json:"reason"`
}
