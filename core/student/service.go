package student

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
)

var (
	// errors
	ErrNotFound      = errors.New("student not found")
	ErrStudentExists = errors.New("a student with this id already exists")
	ErrHasAttendance = errors.New("student has recorded attendance")
)

type (
	Repository interface {
		// CheckIDUniqueness returns ErrStudentExists if any of ids is taken.
		CheckIDUniqueness(ctx context.Context, ids ...int) error
		CreateStudents(ctx context.Context, students ...Student) ([]Student, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Student.Name or an exact match on Student.ID.
		// Students are ordered by name (case-insensitive) when ordering is empty.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		// DeleteStudentsByID returns ErrHasAttendance, deleting nothing, if any of the students has a recorded mark.
		DeleteStudentsByID(ctx context.Context, ids ...int) (int, error)
	}

	Service interface {
		CheckUniqueness(ids ...int) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Import(ctx context.Context, validate *validator.Validate, students []NewStudent) ([]Student, error)
		GetByID(ctx context.Context, id int) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		Delete(ctx context.Context, ids ...int) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ids ...int) error {
	if err := svc.repo.CheckIDUniqueness(context.Background(), ids...); err != nil {
		if errors.Cause(err) == ErrStudentExists {
			return core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	students, err := svc.repo.CreateStudents(ctx, Student{ID: ns.ID, Name: ns.Name, Semester: ns.Semester})
	if err != nil {
		if errors.Cause(err) == ErrStudentExists {
			return Student{}, core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
		}
		return Student{}, err
	}
	return students[0], nil
}

// Import validates every row first and only inserts when all of them are valid.
// Row errors are reported as fields named after the row number ("row 3: name").
func (svc *service) Import(ctx context.Context, validate *validator.Validate, students []NewStudent) ([]Student, error) {
	if len(students) == 0 {
		return []Student{}, nil
	}

	var fldErrs []core.FieldError
	seen := make(map[int]bool, len(students))
	ids := make([]int, 0, len(students))
	for i := range students {
		row := "row " + strconv.Itoa(i+1)
		ns := &students[i]
		ns.Clean()
		if err := validate.Struct(ns); err != nil {
			if vErrs, ok := err.(validator.ValidationErrors); ok {
				for _, vErr := range vErrs {
					fldErrs = append(fldErrs, core.FieldError{Field: row + ": " + vErr.Field(), Error: vErr.Tag()})
				}
				continue
			}
			return nil, err
		}
		if seen[ns.ID] {
			fldErrs = append(fldErrs, core.FieldError{Field: row + ": id", Error: fmt.Sprintf("duplicate id %d", ns.ID)})
			continue
		}
		seen[ns.ID] = true
		ids = append(ids, ns.ID)
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(errors.New("invalid roster"), fldErrs...)
	}
	if err := svc.CheckUniqueness(ids...); err != nil {
		return nil, err
	}

	toCreate := make([]Student, 0, len(students))
	for _, ns := range students {
		toCreate = append(toCreate, Student{ID: ns.ID, Name: ns.Name, Semester: ns.Semester})
	}
	return svc.repo.CreateStudents(ctx, toCreate...)
}

// GetByID returns a *core.LookupError if no Student has this id.
func (svc *service) GetByID(ctx context.Context, id int) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, core.NewLookupError("student", id)
		}
		return Student{}, err
	}
	return std, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, core.FilterOrderings(ordering, OrderingFields))
}

// Delete refuses to remove students with recorded attendance: session records are never rewritten.
func (svc *service) Delete(ctx context.Context, ids ...int) (int, error) {
	cnt, err := svc.repo.DeleteStudentsByID(ctx, ids...)
	if err != nil {
		if errors.Cause(err) == ErrHasAttendance {
			return 0, core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
		}
		return 0, err
	}
	return cnt, nil
}
