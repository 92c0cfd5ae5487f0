package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/student"
)

type Course struct {
	Code  string      `json:"code" db:"code"`
	Title null.String `json:"title" db:"title"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Code  string `json:"code" validate:"required,alphanum,max=16"`
	Title string `json:"title"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanCode(nc.Code)
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

// Session is one recorded class meeting: every enrolled student is marked present or absent.
type Session struct {
	ID         uuid.UUID    `json:"id"`
	Course     string       `json:"course"`
	Key        SessionKey   `json:"session_key"`
	RecordedAt time.Time    `json:"recorded_at"` // UTC
	Marks      map[int]Mark `json:"marks"`
}

func (s Session) PresentCount() int {
	var n int
	for _, m := range s.Marks {
		if m == Present {
			n++
		}
	}
	return n
}

type CourseStats struct {
	Course     string  `json:"course"`
	Sessions   int     `json:"sessions"`
	Present    int     `json:"present"`
	Percentage float64 `json:"percentage"`
}

// Summary is the attendance of one student across the configured courses.
type Summary struct {
	Student student.Student `json:"student"`
	Courses []CourseStats   `json:"courses"`
	// Overall divides by the configured course count.
	Overall float64 `json:"overall"`
	// RecordedOverall divides by the number of courses with recorded sessions.
	RecordedOverall float64 `json:"recorded_overall"`
}

type RosterEntry struct {
	student.Student
	Overall float64 `json:"overall"`
}
