package echoapi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
)

type timetableAPI struct {
	svc *timetable.Service
}

func registerTimetableAPI(g *echo.Group, svc *timetable.Service) {
	api := timetableAPI{svc: svc}

	g.GET("", api.query)
	g.POST("", api.create, adminMiddleware())
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update, adminMiddleware())
	g.DELETE("/:id", api.destroy, adminMiddleware())
	g.PATCH("/:id/status", api.updateStatus, adminMiddleware())
	g.POST("/:id/comments", api.addComment)
	g.GET("/:id/export", api.export)
}

type (
	StatusRequest struct {
		Status string `json:"status"`
	}

	CommentRequest struct {
		Text string `json:"text"`
	}
)

func bindProjection(ctx echo.Context, fallback timetable.Projection) (timetable.Projection, error) {
	param := ctx.QueryParam("projection")
	if param == "" {
		return fallback, nil
	}
	p, ok := timetable.ParseProjection(param)
	if !ok {
		return "", core.NewValidationError(nil, core.FieldError{Field: "projection", Error: "projection must be one of: summary, full"})
	}
	return p, nil
}

func actor(ctx echo.Context) string {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return ""
	}
	return claims.Session("").Username
}

// query lists timetables newest first, as summaries unless ?projection=full.
func (api timetableAPI) query(ctx echo.Context) error {
	filter := new(timetable.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}
	p, err := bindProjection(ctx, timetable.ProjectionSummary)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tts, err := api.svc.Query(ctx.Request().Context(), filter, p, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying timetables")
	}
	if tts == nil {
		tts = []timetable.Timetable{}
	}
	return ok(ctx, tts)
}

func (api timetableAPI) retrieve(ctx echo.Context) error {
	p, err := bindProjection(ctx, timetable.ProjectionFull)
	if err != nil {
		return err
	}
	tt, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), p)
	if err != nil {
		return err
	}
	return ok(ctx, tt)
}

func (api timetableAPI) create(ctx echo.Context) error {
	var draft timetable.Timetable
	if err := ctx.Bind(&draft); err != nil {
		return err
	}
	tt, err := api.svc.Create(ctx.Request().Context(), draft)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, tt)
}

func (api timetableAPI) update(ctx echo.Context) error {
	var draft timetable.Timetable
	if err := ctx.Bind(&draft); err != nil {
		return err
	}
	tt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), draft)
	if err != nil {
		return err
	}
	return ok(ctx, tt)
}

func (api timetableAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api timetableAPI) updateStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	tt, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status, actor(ctx))
	if err != nil {
		return err
	}
	return ok(ctx, tt)
}

func (api timetableAPI) addComment(ctx echo.Context) error {
	var data CommentRequest
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	tt, err := api.svc.AddComment(ctx.Request().Context(), ctx.Param("id"), actor(ctx), data.Text)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, tt)
}

// export streams the document as an attachment, outside of the JSON envelope.
func (api timetableAPI) export(ctx echo.Context) error {
	format := ctx.QueryParam("format")
	if format == "" {
		format = string(timetable.FormatCSV)
	}
	f, err := timetable.ParseFormat(format)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "format", Error: err.Error()})
	}
	tt, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), timetable.ProjectionFull)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := timetable.Export(&buf, tt, f); err != nil {
		return errors.Wrap(err, "exporting timetable")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+strconv.Quote(timetable.FileName(tt, f)))
	return ctx.Blob(http.StatusOK, f.ContentType(), buf.Bytes())
}
