package inmemdb

import (
	"context"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateCourse(_ context.Context, course attendance.Course) (attendance.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[course.Code]; ok {
		return attendance.Course{}, attendance.ErrCourseExists
	}
	c := course
	repo.db.courses[c.Code] = &c
	repo.db.enrollments[c.Code] = make(map[int]bool)
	return course, nil
}

func (repo *attendanceRepository) QueryCourses(_ context.Context) ([]attendance.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]attendance.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *attendanceRepository) Enroll(_ context.Context, course string, studentIDs ...int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	roster, ok := repo.db.enrollments[course]
	if !ok {
		return core.NewStoreError(attendance.ErrCourseNotFound, "enrolling in "+course)
	}
	for _, id := range studentIDs {
		if _, ok := repo.db.students[id]; !ok {
			return core.NewStoreError(errors.Errorf("no student %d", id), "enrolling in "+course)
		}
		roster[id] = true
	}
	return nil
}

func (repo *attendanceRepository) CourseColumns(_ context.Context, course string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	roster, ok := repo.db.enrollments[course]
	if !ok {
		return nil, core.NewStoreError(attendance.ErrCourseNotFound, "reading columns of "+course)
	}
	ids := make([]int, 0, len(roster))
	for id := range roster {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	columns := make([]string, 0, len(ids)+1)
	columns = append(columns, attendance.SessionKeyColumn)
	for _, id := range ids {
		columns = append(columns, strconv.Itoa(id))
	}
	return columns, nil
}

func (repo *attendanceRepository) InsertSession(_ context.Context, sess attendance.Session) (attendance.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[sess.Course]; !ok {
		return attendance.Session{}, core.NewStoreError(attendance.ErrCourseNotFound, "inserting session")
	}
	for _, s := range repo.db.sessions[sess.Course] {
		if s.session.Key == sess.Key {
			return attendance.Session{}, core.NewStoreError(errors.Wrap(attendance.ErrDuplicateSession, sess.Key.String()), "inserting session")
		}
	}

	stored := sess
	stored.Marks = make(map[int]attendance.Mark, len(sess.Marks))
	for id, m := range sess.Marks {
		stored.Marks[id] = m
	}
	repo.db.sessions[sess.Course] = append(repo.db.sessions[sess.Course], &storedSession{session: stored})
	return sess, nil
}

func (repo *attendanceRepository) CountSessions(_ context.Context, course string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if _, ok := repo.db.courses[course]; !ok {
		return 0, core.NewStoreError(attendance.ErrCourseNotFound, "counting sessions of "+course)
	}
	return len(repo.db.sessions[course]), nil
}

func (repo *attendanceRepository) CountMarks(_ context.Context, course string, studentID int, mark attendance.Mark) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var cnt int
	for _, s := range repo.db.sessions[course] {
		if m, ok := s.session.Marks[studentID]; ok && m == mark {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *attendanceRepository) StudentRecords(_ context.Context, course string, studentID int) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]attendance.Record, 0, len(repo.db.sessions[course]))
	for _, s := range repo.db.sessions[course] {
		if m, ok := s.session.Marks[studentID]; ok {
			records = append(records, attendance.Record{Course: course, Key: s.session.Key, Mark: m})
		}
	}
	return records, nil
}
