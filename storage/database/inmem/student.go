package inmemdb

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckIDUniqueness(_ context.Context, ids ...int) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, id := range ids {
		if _, ok := repo.db.students[id]; ok {
			return student.ErrStudentExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudents(_ context.Context, students ...student.Student) ([]student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, std := range students {
		if _, ok := repo.db.students[std.ID]; ok {
			return nil, student.ErrStudentExists
		}
	}
	for i := range students {
		std := students[i]
		repo.db.students[std.ID] = &std
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		if filter != nil {
			if filter.Search != "" {
				search := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(std.Name), search) && strconv.Itoa(std.ID) != filter.Search {
					continue
				}
			}
			if filter.Semester != "" && std.Semester != filter.Semester {
				continue
			}
		}
		students = append(students, *std)
	}

	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		for _, ord := range ordering {
			var less, greater bool
			switch ord.Field {
			case "id":
				less, greater = a.ID < b.ID, a.ID > b.ID
			case "name":
				less, greater = a.Name < b.Name, a.Name > b.Name
			case "semester":
				less, greater = a.Semester < b.Semester, a.Semester > b.Semester
			}
			if less || greater {
				return less == ord.Ascending
			}
		}
		if len(ordering) == 0 {
			an, bn := strings.ToUpper(a.Name), strings.ToUpper(b.Name)
			if an != bn {
				return an < bn
			}
		}
		return a.ID < b.ID
	})
	return students, nil
}

func (repo *studentRepository) DeleteStudentsByID(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		for _, sessions := range repo.db.sessions {
			for _, s := range sessions {
				if _, ok := s.session.Marks[id]; ok {
					return 0, student.ErrHasAttendance
				}
			}
		}
	}

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.students[id]; !ok {
			continue
		}
		delete(repo.db.students, id)
		for _, roster := range repo.db.enrollments {
			delete(roster, id)
		}
		cnt++
	}
	return cnt, nil
}
