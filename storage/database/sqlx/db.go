// Package sqlxrepos implements the domain repositories on top of PostgreSQL
// using sqlx for scanning and squirrel for query building.
package sqlxrepos

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/darasahq/darasa/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// orderBy maps requested orderings onto whitelisted column expressions,
// falling back to deflt when none apply. Unknown fields are ignored.
func orderBy(orderings []core.DBOrdering, allowed map[string]string, deflt string) []string {
	var clauses []string
	for _, ord := range orderings {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		dir := "DESC"
		if ord.Ascending {
			dir = "ASC"
		}
		clauses = append(clauses, col+" "+dir)
	}
	if len(clauses) == 0 && deflt != "" {
		clauses = append(clauses, deflt)
	}
	return clauses
}
