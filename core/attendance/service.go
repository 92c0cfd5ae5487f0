package attendance

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/student"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrCourseNotFound   = errors.New("course not found")
	ErrCourseExists     = errors.New("a course with this code already exists")
	ErrDuplicateSession = errors.New("attendance already marked for this session")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, course Course) (Course, error)
		QueryCourses(ctx context.Context) ([]Course, error)
		// Enroll adds students to the course roster; enrolling twice is a no-op.
		Enroll(ctx context.Context, course string, studentIDs ...int) error
		// CourseColumns returns SessionKeyColumn followed by the enrolled student ids in ascending order.
		CourseColumns(ctx context.Context, course string) ([]string, error)
		// InsertSession stores the session and its marks atomically.
		InsertSession(ctx context.Context, sess Session) (Session, error)
		CountSessions(ctx context.Context, course string) (int, error)
		CountMarks(ctx context.Context, course string, studentID int, mark Mark) (int, error)
		// StudentRecords returns the sessions of course marked for the student, in insertion order.
		StudentRecords(ctx context.Context, course string, studentID int) ([]Record, error)
	}

	Service interface {
		Timetable() *Timetable
		ConfiguredCourses() []string
		EnsureCourses(ctx context.Context) error
		CreateCourse(ctx context.Context, validate *validator.Validate, nc NewCourse) (Course, error)
		Courses(ctx context.Context) ([]Course, error)
		Enroll(ctx context.Context, course string, studentIDs ...int) error
		CourseColumns(ctx context.Context, course string) ([]string, error)
		MarkAttendance(ctx context.Context, present []int, course string, key SessionKey) (Session, error)
		Percentage(ctx context.Context, studentID int, course string) (float64, error)
		OverallPercentage(ctx context.Context, studentID int) (float64, error)
		RecordedOverallPercentage(ctx context.Context, studentID int) (float64, error)
		Summary(ctx context.Context, studentID int) (Summary, error)
		Roster(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]RosterEntry, error)
		Calendar(ctx context.Context, studentID int) (Calendar, error)
	}

	Options struct {
		Timetable *Timetable
		// Courses is the configured course set; defaults to the timetable's courses.
		Courses []string
		// StrictCalendar makes Calendar fail on records that cannot be placed instead of skipping them.
		StrictCalendar bool
		Logger         core.Logger
	}

	service struct {
		repo     Repository
		students student.Service
		tt       *Timetable
		courses  []string
		strict   bool
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, students student.Service, opts Options) Service {
	courses := make([]string, 0, len(opts.Courses))
	for _, c := range opts.Courses {
		courses = append(courses, core.CleanCode(c))
	}
	if len(courses) == 0 && opts.Timetable != nil {
		courses = opts.Timetable.Courses()
	}
	return &service{
		repo:     repo,
		students: students,
		tt:       opts.Timetable,
		courses:  courses,
		strict:   opts.StrictCalendar,
		logger:   opts.Logger,
	}
}

func (svc *service) Timetable() *Timetable { return svc.tt }

func (svc *service) ConfiguredCourses() []string {
	courses := make([]string, len(svc.courses))
	copy(courses, svc.courses)
	return courses
}

// EnsureCourses creates the configured courses that do not exist yet.
func (svc *service) EnsureCourses(ctx context.Context) error {
	existing, err := svc.repo.QueryCourses(ctx)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.Code] = true
	}
	for _, code := range svc.courses {
		if known[code] {
			continue
		}
		if _, err := svc.repo.CreateCourse(ctx, Course{Code: code}); err != nil {
			return errors.Wrapf(err, "creating course %s", code)
		}
		svc.logger.Info("course created", map[string]interface{}{"course": code})
	}
	return nil
}

func (svc *service) CreateCourse(ctx context.Context, validate *validator.Validate, nc NewCourse) (Course, error) {
	if err := nc.Validate(validate); err != nil {
		return Course{}, err
	}
	course := Course{Code: nc.Code}
	if nc.Title != "" {
		course.Title.SetValid(nc.Title)
	}
	created, err := svc.repo.CreateCourse(ctx, course)
	if err != nil {
		if errors.Cause(err) == ErrCourseExists {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return Course{}, err
	}
	return created, nil
}

func (svc *service) Courses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

// Enroll fails with a *core.LookupError if any of the students does not exist.
func (svc *service) Enroll(ctx context.Context, course string, studentIDs ...int) error {
	for _, id := range studentIDs {
		if _, err := svc.students.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return svc.repo.Enroll(ctx, core.CleanCode(course), studentIDs...)
}

func (svc *service) CourseColumns(ctx context.Context, course string) ([]string, error) {
	return svc.repo.CourseColumns(ctx, core.CleanCode(course))
}

// MarkAttendance records one session of course: every enrolled student is marked Present
// if their id is in present, Absent otherwise.
func (svc *service) MarkAttendance(ctx context.Context, present []int, course string, key SessionKey) (Session, error) {
	if key.IsZero() {
		return Session{}, core.NewValidationError(ErrInvalidSessionKey, core.FieldError{Field: "session_key", Error: "this field is required"})
	}
	course = core.CleanCode(course)

	columns, err := svc.repo.CourseColumns(ctx, course)
	if err != nil {
		return Session{}, err
	}
	if len(columns) == 0 || columns[0] != SessionKeyColumn {
		return Session{}, core.NewStoreError(errors.Errorf("unexpected columns %v", columns), "reading course "+course)
	}

	isPresent := make(map[int]bool, len(present))
	for _, id := range present {
		isPresent[id] = true
	}
	marks := make(map[int]Mark, len(columns)-1)
	for _, col := range columns[1:] {
		id, err := strconv.Atoi(col)
		if err != nil {
			return Session{}, core.NewStoreError(errors.Wrapf(err, "student column %q", col), "reading course "+course)
		}
		if isPresent[id] {
			marks[id] = Present
			delete(isPresent, id)
		} else {
			marks[id] = Absent
		}
	}
	if len(isPresent) > 0 {
		ignored := make([]int, 0, len(isPresent))
		for id := range isPresent {
			ignored = append(ignored, id)
		}
		sort.Ints(ignored)
		svc.logger.Warn("present students not enrolled; ignored", map[string]interface{}{"course": course, "session": key.String(), "ids": ignored})
	}

	sess, err := svc.repo.InsertSession(ctx, Session{
		ID:         uuid.New(),
		Course:     course,
		Key:        key,
		RecordedAt: nowFunc().UTC(),
		Marks:      marks,
	})
	if err != nil {
		return Session{}, err
	}
	svc.logger.Info("attendance marked", map[string]interface{}{
		"course": course, "session": key.String(), "present": sess.PresentCount(), "enrolled": len(marks),
	})
	return sess, nil
}

func (svc *service) courseStats(ctx context.Context, studentID int, course string) (CourseStats, error) {
	stats := CourseStats{Course: course}
	total, err := svc.repo.CountSessions(ctx, course)
	if err != nil {
		return CourseStats{}, err
	}
	present, err := svc.repo.CountMarks(ctx, course, studentID, Present)
	if err != nil {
		return CourseStats{}, err
	}
	stats.Sessions = total
	stats.Present = present
	if total > 0 {
		stats.Percentage = 100 * float64(present) / float64(total)
	}
	return stats, nil
}

// Percentage is the share of the course's sessions the student attended, in [0,100].
// It is 0 when no session has been recorded yet.
func (svc *service) Percentage(ctx context.Context, studentID int, course string) (float64, error) {
	if _, err := svc.students.GetByID(ctx, studentID); err != nil {
		return 0, err
	}
	stats, err := svc.courseStats(ctx, studentID, core.CleanCode(course))
	if err != nil {
		return 0, err
	}
	return stats.Percentage, nil
}

func (svc *service) allStats(ctx context.Context, studentID int) ([]CourseStats, error) {
	stats := make([]CourseStats, 0, len(svc.courses))
	for _, course := range svc.courses {
		st, err := svc.courseStats(ctx, studentID, course)
		if err != nil {
			return nil, errors.Wrapf(err, "course %s", course)
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// overall is the mean percentage over all configured courses.
func overall(stats []CourseStats) float64 {
	if len(stats) == 0 {
		return 0
	}
	var sum float64
	for _, st := range stats {
		sum += st.Percentage
	}
	return sum / float64(len(stats))
}

// recordedOverall is the mean percentage over the courses that have recorded sessions.
func recordedOverall(stats []CourseStats) float64 {
	var sum float64
	var n int
	for _, st := range stats {
		if st.Sessions > 0 {
			sum += st.Percentage
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// OverallPercentage averages the student's percentages over the configured courses,
// dividing by the configured course count even when some courses have no records.
func (svc *service) OverallPercentage(ctx context.Context, studentID int) (float64, error) {
	if _, err := svc.students.GetByID(ctx, studentID); err != nil {
		return 0, err
	}
	stats, err := svc.allStats(ctx, studentID)
	if err != nil {
		return 0, err
	}
	return overall(stats), nil
}

// RecordedOverallPercentage averages only over the courses with at least one recorded session.
func (svc *service) RecordedOverallPercentage(ctx context.Context, studentID int) (float64, error) {
	if _, err := svc.students.GetByID(ctx, studentID); err != nil {
		return 0, err
	}
	stats, err := svc.allStats(ctx, studentID)
	if err != nil {
		return 0, err
	}
	return recordedOverall(stats), nil
}

func (svc *service) Summary(ctx context.Context, studentID int) (Summary, error) {
	std, err := svc.students.GetByID(ctx, studentID)
	if err != nil {
		return Summary{}, err
	}
	stats, err := svc.allStats(ctx, studentID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Student:         std,
		Courses:         stats,
		Overall:         overall(stats),
		RecordedOverall: recordedOverall(stats),
	}, nil
}

// Roster lists the students matching filter along with their overall percentage.
func (svc *service) Roster(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]RosterEntry, error) {
	students, err := svc.students.Query(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	entries := make([]RosterEntry, 0, len(students))
	for _, std := range students {
		stats, err := svc.allStats(ctx, std.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, RosterEntry{Student: std, Overall: overall(stats)})
	}
	return entries, nil
}

// Calendar reconstructs the attendance grid of a student from the records of every configured course.
func (svc *service) Calendar(ctx context.Context, studentID int) (Calendar, error) {
	if _, err := svc.students.GetByID(ctx, studentID); err != nil {
		return Calendar{}, err
	}

	var records []Record
	for _, course := range svc.courses {
		recs, err := svc.repo.StudentRecords(ctx, course, studentID)
		if err != nil {
			return Calendar{}, errors.Wrapf(err, "course %s", course)
		}
		records = append(records, recs...)
	}

	cal := BuildCalendar(svc.tt, studentID, records)
	if len(cal.Skipped) > 0 {
		if svc.strict {
			return Calendar{}, cal.Skipped[0].Err
		}
		svc.logger.Warn("sessions outside the timetable skipped", map[string]interface{}{"student": studentID, "count": len(cal.Skipped)})
	}
	return cal, nil
}
