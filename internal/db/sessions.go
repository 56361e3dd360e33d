package db

import (
	"context"
	"database/sql"
	"time"

	"fitstudio/internal/model"
)

// ListUpcomingSessions returns non-cancelled sessions starting at or after from,
// earliest first. Member and machine are optional.
func (db *DB) ListUpcomingSessions(ctx context.Context, from time.Time) ([]model.BookedSession, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.id, s.scheduled_start, s.scheduled_end, s.status, m.full_name, mc.number
		FROM sessions s
		LEFT JOIN members m ON m.id = s.member_id
		LEFT JOIN machines mc ON mc.id = s.machine_id
		WHERE s.status != ? AND s.scheduled_start >= ?
		ORDER BY s.scheduled_start ASC, s.id ASC`,
		string(model.SessionCancelled), from.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.BookedSession
	for rows.Next() {
		var (
			s       model.BookedSession
			status  string
			member  sql.NullString
			machine sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.ScheduledStart, &s.ScheduledEnd, &status, &member, &machine); err != nil {
			return nil, err
		}
		s.Status = model.SessionStatus(status)
		if member.Valid {
			name := member.String
			s.MemberName = &name
		}
		if machine.Valid {
			n := int(machine.Int64)
			s.MachineNumber = &n
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CreateMember inserts a member and returns its id.
func (db *DB) CreateMember(ctx context.Context, fullName string) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO members (full_name) VALUES (?)`, fullName)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateMachine inserts a machine and returns its id.
func (db *DB) CreateMachine(ctx context.Context, number int) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO machines (number) VALUES (?)`, number)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateSession books a session. Zero memberID or machineID leaves the link empty.
func (db *DB) CreateSession(ctx context.Context, memberID, machineID int64, start, end time.Time, status model.SessionStatus) (int64, error) {
	if status == "" {
		status = model.SessionScheduled
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO sessions (member_id, machine_id, scheduled_start, scheduled_end, status)
		VALUES (?, ?, ?, ?, ?)`,
		nullID(memberID), nullID(machineID), start.UTC(), end.UTC(), string(status),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nullID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}
