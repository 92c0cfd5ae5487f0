package attendance

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses an english weekday name, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdays[core.CleanString(name, true /* lower */)]
	if !ok {
		return 0, errors.Errorf("unknown weekday %q", name)
	}
	return day, nil
}

// Timetable is the fixed weekly schedule: (weekday, time slot) -> course code.
// It is immutable once built.
type Timetable struct {
	slots   []string
	slotIdx map[string]int
	days    map[time.Weekday][]string // course per slot index; "" when nothing is scheduled
}

// NewTimetable builds a Timetable. Rows shorter than slots are padded with empty cells.
func NewTimetable(slots []string, days map[time.Weekday][]string) (*Timetable, error) {
	if len(slots) == 0 {
		return nil, errors.New("timetable: no time slots")
	}
	tt := &Timetable{
		slots:   make([]string, 0, len(slots)),
		slotIdx: make(map[string]int, len(slots)),
		days:    make(map[time.Weekday][]string, len(days)),
	}
	for _, s := range slots {
		slot, err := NormalizeSlot(s)
		if err != nil {
			return nil, errors.Wrap(err, "timetable")
		}
		if _, dup := tt.slotIdx[slot]; dup {
			return nil, errors.Errorf("timetable: duplicate time slot %q", slot)
		}
		tt.slotIdx[slot] = len(tt.slots)
		tt.slots = append(tt.slots, slot)
	}
	for day, courses := range days {
		if len(courses) > len(tt.slots) {
			return nil, errors.Errorf("timetable: %s has %d classes for %d time slots", day, len(courses), len(tt.slots))
		}
		row := make([]string, len(tt.slots))
		for i, c := range courses {
			row[i] = core.CleanCode(c)
		}
		tt.days[day] = row
	}
	return tt, nil
}

// TimetableFromConfig builds the Timetable described by the app configuration.
func TimetableFromConfig(conf core.TimetableConfig) (*Timetable, error) {
	days := make(map[time.Weekday][]string, len(conf.Days))
	for name, courses := range conf.Days {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, errors.Wrap(err, "timetable")
		}
		days[day] = courses
	}
	return NewTimetable(conf.Slots, days)
}

// Slots returns the time slots in column order.
func (tt *Timetable) Slots() []string {
	slots := make([]string, len(tt.slots))
	copy(slots, tt.slots)
	return slots
}

func (tt *Timetable) SlotIndex(slot string) (int, bool) {
	i, ok := tt.slotIdx[slot]
	return i, ok
}

// CourseAt returns the course scheduled on day at slot.
// It fails with a *core.LookupError when slot is not a timetable column or when no class is scheduled then.
func (tt *Timetable) CourseAt(day time.Weekday, slot string) (string, error) {
	i, ok := tt.slotIdx[slot]
	if !ok {
		return "", core.NewLookupError("timetable slot", slot)
	}
	row, ok := tt.days[day]
	if !ok || row[i] == "" {
		return "", core.NewLookupError("scheduled class", fmt.Sprintf("%s %s", day, slot))
	}
	return row[i], nil
}

// Courses returns the distinct scheduled courses, sorted.
func (tt *Timetable) Courses() []string {
	seen := make(map[string]bool)
	courses := make([]string, 0)
	for _, row := range tt.days {
		for _, c := range row {
			if c != "" && !seen[c] {
				seen[c] = true
				courses = append(courses, c)
			}
		}
	}
	sort.Strings(courses)
	return courses
}

func (tt *Timetable) MarshalJSON() ([]byte, error) {
	days := make(map[string][]string, len(tt.days))
	for day, row := range tt.days {
		days[strings.ToLower(day.String())] = row
	}
	return json.Marshal(struct {
		Slots []string            `json:"slots"`
		Days  map[string][]string `json:"days"`
	}{tt.slots, days})
}
