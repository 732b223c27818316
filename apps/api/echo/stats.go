package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/stats"
)

func registerStatsAPI(g *echo.Group, svc *stats.Service) {
	g.GET("", func(ctx echo.Context) error {
		st, err := svc.Data(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "computing statistics")
		}
		return ok(ctx, st)
	})
	g.GET("/students", func(ctx echo.Context) error {
		st, err := svc.Students(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "computing student statistics")
		}
		return ok(ctx, st)
	})
}
