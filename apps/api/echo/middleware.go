package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/student"
)

const objectKey = "object"

// ctxStudentMiddleware loads the Student designated by the `:id` path param into the context.
func ctxStudentMiddleware(svc student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil {
				return errHttpNotFound
			}
			std, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if core.IsLookupError(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student by ID")
			}
			ctx.Set(objectKey, std)
			return next(ctx)
		}
	}
}

func getContextStudent(ctx echo.Context) (student.Student, error) {
	std, ok := ctx.Get(objectKey).(student.Student)
	if !ok {
		return student.Student{}, errors.Wrap(errObjNotFoundInCtx, "retrieving student from context")
	}
	return std, nil
}
