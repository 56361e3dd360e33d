package report

import (
	"io"
	"time"

	"fitstudio/internal/model"
)

// ContentType is the MIME type of xlsx output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var conflictColumns = []string{"Session", "Date", "Start", "End", "Member", "Machine", "Reason"}

// WriteConflicts writes conflicts as a single sheet workbook to wr.
// Times are rendered in loc.
func WriteConflicts(wr io.Writer, conflicts []model.SessionConflict, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	wb := NewWorkbook()
	defer wb.Close()

	if err := wb.AddSheet("Conflicts"); err != nil {
		return err
	}
	if err := wb.WriteHeader(conflictColumns); err != nil {
		return err
	}
	for _, c := range conflicts {
		member := ""
		if c.MemberName != nil {
			member = *c.MemberName
		}
		if err := wb.WriteRow([]any{
			c.SessionID,
			c.Date,
			c.StartTime.In(loc).Format("15:04"),
			c.EndTime.In(loc).Format("15:04"),
			member,
			c.MachineNumber,
			c.Reason,
		}); err != nil {
			return err
		}
	}
	if err := wb.SetColumnWidths(10, 12, 8, 8, 24, 10, 36); err != nil {
		return err
	}
	return wb.Write(wr)
}
