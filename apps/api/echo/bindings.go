package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/volatiletech/strmangle"

	"github.com/lo-maxwell/hkn-rails/core"
)

var orderingParam = "ordering"

// Ordering binds the comma separated "ordering" query param; "-field" sorts descending.
// Field names may be given in camelCase, they are stored in snake_case.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
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
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: strmangle.SnakeCase(field), Ascending: !descending})
	}
}

// intQueryParam returns the int value of the name query param, or def when missing or malformed.
func intQueryParam(ctx echo.Context, name string, def int) int {
	n, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil {
		return def
	}
	return n
}
