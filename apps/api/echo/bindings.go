package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/darasahq/darasa/core"
)

var (
	sortParam  = "sort"
	orderParam = "order"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `sort` (comma-separated field list) and `order` (asc|desc,
// default asc) query params.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(sortParam)
	if val == "" {
		return
	}
	ascending := !strings.EqualFold(ctx.QueryParam(orderParam), "desc")

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: ascending})
	}
}
