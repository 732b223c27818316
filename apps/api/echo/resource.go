package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/crud"
)

// resourceService is the shape shared by the room, teacher and course services:
// T the record, F its query filter and S its list summary.
type resourceService[T crud.Record[T], F any, S any] interface {
	crud.Service[T]
	Query(ctx context.Context, filter *F, ordering ...core.DBOrdering) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Summary(ctx context.Context, filter *F) (S, error)
}

type resourceAPI[T crud.Record[T], F any, S any] struct {
	svc resourceService[T, F, S]
}

// registerResourceAPI mounts the administration endpoints of one entity on g.
// Reads are open to any signed-in user, writes to admins.
func registerResourceAPI[T crud.Record[T], F any, S any](g *echo.Group, svc resourceService[T, F, S]) {
	api := resourceAPI[T, F, S]{svc: svc}

	g.GET("", api.query)
	g.GET("/summary", api.summary)
	g.POST("", api.create, adminMiddleware())
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update, adminMiddleware())
	g.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api resourceAPI[T, F, S]) bindFilter(ctx echo.Context) (*F, error) {
	filter := new(F)
	if err := ctx.Bind(filter); err != nil {
		return nil, err
	}
	return filter, nil
}

func (api resourceAPI[T, F, S]) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	records, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying records")
	}
	if records == nil {
		records = []T{}
	}
	return ok(ctx, records)
}

func (api resourceAPI[T, F, S]) summary(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	summary, err := api.svc.Summary(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "summarizing records")
	}
	return ok(ctx, summary)
}

func (api resourceAPI[T, F, S]) retrieve(ctx echo.Context) error {
	rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ok(ctx, rec)
}

func (api resourceAPI[T, F, S]) create(ctx echo.Context) error {
	var draft T
	if err := ctx.Bind(&draft); err != nil {
		return err
	}
	rec, err := api.svc.Create(ctx.Request().Context(), draft)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, rec)
}

func (api resourceAPI[T, F, S]) update(ctx echo.Context) error {
	var draft T
	if err := ctx.Bind(&draft); err != nil {
		return err
	}
	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), draft)
	if err != nil {
		return err
	}
	return ok(ctx, rec)
}

func (api resourceAPI[T, F, S]) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
