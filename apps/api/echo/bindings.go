package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/student"
)

const orderingParam = "ordering"

// rosterParams are the query params of the roster endpoint:
// ?search=ada&semester=S1&ordering=-semester,name
type rosterParams struct {
	Filter   student.QueryFilter
	Ordering []core.DBOrdering
}

func bindRosterParams(ctx echo.Context) (rosterParams, error) {
	var params rosterParams
	err := echo.QueryParamsBinder(ctx).
		String("search", &params.Filter.Search).
		String("semester", &params.Filter.Semester).
		BindError()
	if err != nil {
		return rosterParams{}, err
	}
	params.Filter.Clean()

	params.Ordering, err = parseOrdering(ctx.QueryParam(orderingParam), student.OrderingFields)
	if err != nil {
		return rosterParams{}, err
	}
	return params, nil
}

// parseOrdering reads a comma separated list of fields, each optionally prefixed by "-" (descending).
// Blank entries are dropped, a repeated field keeps its first direction and
// a field missing from allowed is a *core.ValidationError.
func parseOrdering(raw string, allowed map[string]string) ([]core.DBOrdering, error) {
	orderings := make([]core.DBOrdering, 0)
	seen := make(map[string]bool)
	for _, field := range strings.Split(raw, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimSpace(strings.TrimLeft(field, "+-"))
		if field == "" || seen[field] {
			continue
		}
		if _, ok := allowed[field]; !ok {
			return nil, core.NewValidationError(
				errors.Errorf("unknown ordering field %q", field),
				core.FieldError{Field: orderingParam, Error: "unknown field: " + field},
			)
		}
		seen[field] = true
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings, nil
}
