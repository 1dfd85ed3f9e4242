// Package sqlxrepos implements the app repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/akademyx/admissions/core"
)

// orderByClause renders ordering into an ORDER BY clause, or "" when empty.
func orderByClause(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
