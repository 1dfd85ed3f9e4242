package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/akademyx/admissions/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the "ordering" query parameter, keeping only fields named in
// sortable. The fields end up in an ORDER BY clause, so anything outside the
// column whitelist is dropped.
func (ord *Ordering) Bind(ctx echo.Context, sortable ...string) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !isSortable(field, sortable) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func isSortable(field string, sortable []string) bool {
	for _, col := range sortable {
		if field == col {
			return true
		}
	}
	return false
}
