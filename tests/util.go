package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/hazira/core/attendance"
	"github.com/trezcool/hazira/core/student"
	"github.com/trezcool/hazira/storage/database"
)

// PrepareDB opens a migrated in-memory SQLite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB, database.EngineSQLite); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateStudent(t *testing.T, repo student.Repository, id int, name, semester string) student.Student {
	t.Helper()
	students, err := repo.CreateStudents(context.Background(), student.Student{ID: id, Name: name, Semester: semester})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return students[0]
}

func CreateCourse(t *testing.T, repo attendance.Repository, code, title string, enrolled ...int) attendance.Course {
	t.Helper()
	course := attendance.Course{Code: code}
	if title != "" {
		course.Title = null.StringFrom(title)
	}
	course, err := repo.CreateCourse(context.Background(), course)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	if len(enrolled) > 0 {
		if err = repo.Enroll(context.Background(), code, enrolled...); err != nil {
			t.Fatalf("CreateCourse() failed: %v", err)
		}
	}
	return course
}

// Timetable is a small weekly timetable: CS101 on Monday 0900, MA201 on Tuesday 1000.
func Timetable(t *testing.T) *attendance.Timetable {
	t.Helper()
	tt, err := attendance.NewTimetable(
		[]string{"0900", "1000", "1100"},
		map[time.Weekday][]string{
			time.Monday:  {"CS101", "MA201", ""},
			time.Tuesday: {"", "MA201", "CS101"},
		},
	)
	if err != nil {
		t.Fatalf("Timetable() failed: %v", err)
	}
	return tt
}
