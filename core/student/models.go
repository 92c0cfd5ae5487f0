package student

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/hazira/core"
)

// OrderingFields maps the orderable API fields to their columns.
var OrderingFields = map[string]string{
	"id":       "id",
	"name":     "name",
	"semester": "semester",
}

type Student struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Semester string `json:"semester" db:"semester"`
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	ID       int    `json:"id" csv:"id" validate:"required,gt=0"`
	Name     string `json:"name" csv:"name" validate:"required,notblank"`
	Semester string `json:"semester" csv:"semester"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Semester = core.CleanString(ns.Semester)
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc Service) error {
	ns.Clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.ID)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Semester string `query:"semester"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Semester == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Semester = core.CleanString(qf.Semester)
}
