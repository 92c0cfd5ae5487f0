package attendance

import "fmt"

// EmptyCell fills the calendar cells without a recorded session.
const EmptyCell = "-"

// Record is one recorded session of a course, seen from one student.
type Record struct {
	Course string     `json:"course"`
	Key    SessionKey `json:"session_key"`
	Mark   Mark       `json:"mark"`
}

type CalendarRow struct {
	Date  string   `json:"date"`
	Cells []string `json:"cells"`
}

// SkippedRecord is a Record that could not be placed in the calendar.
type SkippedRecord struct {
	Record
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// Calendar is the date x time slot attendance grid of one student.
// Cells hold EmptyCell or "<course>: <mark>".
type Calendar struct {
	StudentID int           `json:"student_id"`
	Slots     []string      `json:"slots"`
	Rows      []CalendarRow `json:"rows"`
	// Skipped lists the records whose time slot is not a timetable column.
	Skipped []SkippedRecord `json:"skipped"`
	// Unscheduled lists the placed records whose course differs from the timetable's (e.g. makeup classes).
	Unscheduled []Record `json:"unscheduled"`
}

// Header is the report header: "Date" followed by the time slots.
func (c Calendar) Header() []string {
	return append([]string{"Date"}, c.Slots...)
}

// Table returns the rows of the grid, each starting with its date.
func (c Calendar) Table() [][]string {
	table := make([][]string, 0, len(c.Rows))
	for _, row := range c.Rows {
		table = append(table, append([]string{row.Date}, row.Cells...))
	}
	return table
}

// Cell returns the content of the cell at date x slot.
func (c Calendar) Cell(date, slot string) (string, bool) {
	col := -1
	for i, s := range c.Slots {
		if s == slot {
			col = i
			break
		}
	}
	if col < 0 {
		return "", false
	}
	for _, row := range c.Rows {
		if row.Date == date {
			return row.Cells[col], true
		}
	}
	return "", false
}

// BuildCalendar pivots the records of a student into a Calendar shaped by tt.
// Rows follow the order in which dates are first encountered in records.
// Cells are labelled with the recorded course, not the scheduled one.
func BuildCalendar(tt *Timetable, studentID int, records []Record) Calendar {
	cal := Calendar{
		StudentID:   studentID,
		Slots:       tt.Slots(),
		Rows:        make([]CalendarRow, 0),
		Skipped:     make([]SkippedRecord, 0),
		Unscheduled: make([]Record, 0),
	}
	rowIdx := make(map[string]int)

	for _, rec := range records {
		col, ok := tt.SlotIndex(rec.Key.Slot)
		if !ok {
			_, err := tt.CourseAt(rec.Key.Weekday(), rec.Key.Slot)
			cal.Skipped = append(cal.Skipped, SkippedRecord{Record: rec, Err: err, Reason: err.Error()})
			continue
		}

		// a date gets a row only once one of its records lands in a slot
		date := rec.Key.DateString()
		r, ok := rowIdx[date]
		if !ok {
			cells := make([]string, len(cal.Slots))
			for i := range cells {
				cells[i] = EmptyCell
			}
			r = len(cal.Rows)
			rowIdx[date] = r
			cal.Rows = append(cal.Rows, CalendarRow{Date: date, Cells: cells})
		}

		if scheduled, err := tt.CourseAt(rec.Key.Weekday(), rec.Key.Slot); err != nil || scheduled != rec.Course {
			cal.Unscheduled = append(cal.Unscheduled, rec)
		}
		cal.Rows[r].Cells[col] = fmt.Sprintf("%s: %s", rec.Course, rec.Mark)
	}
	return cal
}
