package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/ratiba/core"
)

const orderingParam = "ordering"

type (
	// dataResponse is the envelope of every successful response with a body.
	dataResponse struct {
		Data interface{} `json:"data"`
	}

	errorResponse struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields,omitempty"`
	}
)

func respond(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, dataResponse{Data: data})
}

func ok(ctx echo.Context, data interface{}) error {
	return respond(ctx, http.StatusOK, data)
}

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other` (a leading "-" sorts descending).
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}
