package inmemdb

import (
	"sync"

	"github.com/trezcool/hazira/core/attendance"
	"github.com/trezcool/hazira/core/student"
)

type (
	// DB is an in-memory store mirroring the SQL schema.
	DB struct {
		mutex sync.RWMutex

		students    map[int]*student.Student
		courses     map[string]*attendance.Course
		enrollments map[string]map[int]bool     // {course: {studentID}}
		sessions    map[string][]*storedSession // {course: sessions in insertion order}
	}

	storedSession struct {
		session attendance.Session
	}
)

func Open() *DB {
	return &DB{
		students:    make(map[int]*student.Student),
		courses:     make(map[string]*attendance.Course),
		enrollments: make(map[string]map[int]bool),
		sessions:    make(map[string][]*storedSession),
	}
}
