package sqlxrepos

import (
	"context"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
)

type attendanceRepository struct {
	db core.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db core.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) courseExists(ctx context.Context, exec core.DBExecutor, code string) (bool, error) {
	var cnt int
	if err := exec.GetContext(ctx, &cnt, exec.Rebind("SELECT COUNT(*) FROM courses WHERE code = ?"), code); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (repo attendanceRepository) CreateCourse(ctx context.Context, course attendance.Course) (attendance.Course, error) {
	q := repo.db.Rebind("INSERT INTO courses (code, title) VALUES (?, ?)")
	if _, err := repo.db.ExecContext(ctx, q, course.Code, course.Title); err != nil {
		if isUniqueViolation(err) {
			return attendance.Course{}, attendance.ErrCourseExists
		}
		return attendance.Course{}, storeErr(err, "inserting course")
	}
	return course, nil
}

func (repo attendanceRepository) QueryCourses(ctx context.Context) ([]attendance.Course, error) {
	courses := make([]attendance.Course, 0)
	if err := repo.db.SelectContext(ctx, &courses, "SELECT code, title FROM courses ORDER BY code"); err != nil {
		return nil, storeErr(err, "querying courses")
	}
	return courses, nil
}

func (repo attendanceRepository) Enroll(ctx context.Context, course string, studentIDs ...int) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := repo.courseExists(ctx, tx, course)
	if err != nil {
		return storeErr(err, "finding course")
	}
	if !ok {
		return storeErr(attendance.ErrCourseNotFound, "enrolling in "+course)
	}

	exists := tx.Rebind("SELECT COUNT(*) FROM enrollments WHERE course_code = ? AND student_id = ?")
	insert := tx.Rebind("INSERT INTO enrollments (course_code, student_id) VALUES (?, ?)")
	for _, id := range studentIDs {
		var cnt int
		if err = tx.GetContext(ctx, &cnt, exists, course, id); err != nil {
			return storeErr(err, "checking enrollment")
		}
		if cnt > 0 {
			continue
		}
		if _, err = tx.ExecContext(ctx, insert, course, id); err != nil {
			return storeErr(err, "inserting enrollment")
		}
	}
	if err = tx.Commit(); err != nil {
		return storeErr(err, "committing enrollments")
	}
	return nil
}

func (repo attendanceRepository) CourseColumns(ctx context.Context, course string) ([]string, error) {
	ok, err := repo.courseExists(ctx, repo.db, course)
	if err != nil {
		return nil, storeErr(err, "finding course")
	}
	if !ok {
		return nil, storeErr(attendance.ErrCourseNotFound, "reading columns of "+course)
	}

	var ids []int
	q := repo.db.Rebind("SELECT student_id FROM enrollments WHERE course_code = ? ORDER BY student_id")
	if err = repo.db.SelectContext(ctx, &ids, q, course); err != nil {
		return nil, storeErr(err, "reading columns of "+course)
	}
	columns := make([]string, 0, len(ids)+1)
	columns = append(columns, attendance.SessionKeyColumn)
	for _, id := range ids {
		columns = append(columns, strconv.Itoa(id))
	}
	return columns, nil
}

func (repo attendanceRepository) InsertSession(ctx context.Context, sess attendance.Session) (attendance.Session, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return attendance.Session{}, storeErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := tx.Rebind("INSERT INTO sessions (id, course_code, session_date, time_slot, recorded_at) VALUES (?, ?, ?, ?, ?)")
	if _, err = tx.ExecContext(ctx, q, sess.ID.String(), sess.Course, sess.Key.DBDate(), sess.Key.Slot, sess.RecordedAt); err != nil {
		if isUniqueViolation(err) {
			return attendance.Session{}, storeErr(errors.Wrap(attendance.ErrDuplicateSession, sess.Key.String()), "inserting session")
		}
		return attendance.Session{}, storeErr(err, "inserting session")
	}

	ids := make([]int, 0, len(sess.Marks))
	for id := range sess.Marks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	q = tx.Rebind("INSERT INTO session_marks (session_id, student_id, mark) VALUES (?, ?, ?)")
	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, q, sess.ID.String(), id, string(sess.Marks[id])); err != nil {
			return attendance.Session{}, storeErr(err, "inserting mark")
		}
	}

	if err = tx.Commit(); err != nil {
		return attendance.Session{}, storeErr(err, "committing session")
	}
	return sess, nil
}

func (repo attendanceRepository) CountSessions(ctx context.Context, course string) (int, error) {
	ok, err := repo.courseExists(ctx, repo.db, course)
	if err != nil {
		return 0, storeErr(err, "finding course")
	}
	if !ok {
		return 0, storeErr(attendance.ErrCourseNotFound, "counting sessions of "+course)
	}

	var cnt int
	q := repo.db.Rebind("SELECT COUNT(*) FROM sessions WHERE course_code = ?")
	if err = repo.db.GetContext(ctx, &cnt, q, course); err != nil {
		return 0, storeErr(err, "counting sessions")
	}
	return cnt, nil
}

func (repo attendanceRepository) CountMarks(ctx context.Context, course string, studentID int, mark attendance.Mark) (int, error) {
	var cnt int
	q := repo.db.Rebind(`
		SELECT COUNT(*)
		FROM session_marks m
		JOIN sessions s ON s.id = m.session_id
		WHERE s.course_code = ? AND m.student_id = ? AND m.mark = ?`)
	if err := repo.db.GetContext(ctx, &cnt, q, course, studentID, string(mark)); err != nil {
		return 0, storeErr(err, "counting marks")
	}
	return cnt, nil
}

type recordRow struct {
	SessionDate string      `db:"session_date"`
	TimeSlot    string      `db:"time_slot"`
	Mark        null.String `db:"mark"`
}

func (repo attendanceRepository) StudentRecords(ctx context.Context, course string, studentID int) ([]attendance.Record, error) {
	var rows []recordRow
	q := repo.db.Rebind(`
		SELECT s.session_date, s.time_slot, m.mark
		FROM sessions s
		LEFT JOIN session_marks m ON m.session_id = s.id AND m.student_id = ?
		WHERE s.course_code = ?
		ORDER BY s.recorded_at, s.session_date, s.time_slot`)
	if err := repo.db.SelectContext(ctx, &rows, q, studentID, course); err != nil {
		return nil, storeErr(err, "querying records")
	}

	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		if !row.Mark.Valid {
			continue // session held before the student was enrolled
		}
		key, err := attendance.ParseDBSessionKey(row.SessionDate, row.TimeSlot)
		if err != nil {
			return nil, storeErr(err, "reading record")
		}
		records = append(records, attendance.Record{Course: course, Key: key, Mark: attendance.Mark(row.Mark.String)})
	}
	return records, nil
}
