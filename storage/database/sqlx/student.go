package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/student"
)

type studentRepository struct {
	db core.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CheckIDUniqueness(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("SELECT COUNT(*) FROM students WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	var cnt int
	if err = repo.db.GetContext(ctx, &cnt, repo.db.Rebind(q), args...); err != nil {
		return storeErr(err, "checking student uniqueness")
	}
	if cnt > 0 {
		return student.ErrStudentExists
	}
	return nil
}

func (repo studentRepository) CreateStudents(ctx context.Context, students ...student.Student) ([]student.Student, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storeErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := tx.Rebind("INSERT INTO students (id, name, semester) VALUES (?, ?, ?)")
	for _, std := range students {
		if _, err = tx.ExecContext(ctx, q, std.ID, std.Name, std.Semester); err != nil {
			if isUniqueViolation(err) {
				return nil, student.ErrStudentExists
			}
			return nil, storeErr(err, "inserting student")
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, storeErr(err, "committing students")
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id int) (student.Student, error) {
	var std student.Student
	q := repo.db.Rebind("SELECT id, name, semester FROM students WHERE id = ?")
	if err := repo.db.GetContext(ctx, &std, q, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return std, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var where []string
	var args []interface{}

	if filter != nil {
		// students with a Name matching the search keyword, or with this exact ID
		if filter.Search != "" {
			cond := "LOWER(name) LIKE ?"
			args = append(args, "%"+strings.ToLower(filter.Search)+"%")
			if id, err := strconv.Atoi(filter.Search); err == nil {
				cond += " OR id = ?"
				args = append(args, id)
			}
			where = append(where, "("+cond+")")
		}
		if filter.Semester != "" {
			where = append(where, "semester = ?")
			args = append(args, filter.Semester)
		}
	}

	q := "SELECT id, name, semester FROM students"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		q += " ORDER BY UPPER(name) ASC, id ASC"
	}

	students := make([]student.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, repo.db.Rebind(q), args...); err != nil {
		return nil, storeErr(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, storeErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q, args, err := sqlx.In("SELECT COUNT(*) FROM session_marks WHERE student_id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building marks query")
	}
	var marks int
	if err = tx.GetContext(ctx, &marks, tx.Rebind(q), args...); err != nil {
		return 0, storeErr(err, "counting marks")
	}
	if marks > 0 {
		return 0, student.ErrHasAttendance
	}

	q, args, err = sqlx.In("DELETE FROM students WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
	if err != nil {
		return 0, storeErr(err, "deleting students")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr(err, "deleting students")
	}
	if err = tx.Commit(); err != nil {
		return 0, storeErr(err, "committing deletion")
	}
	return int(cnt), nil
}
