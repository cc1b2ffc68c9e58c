package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
)

type lessonApi struct {
	svc *course.Service
}

func registerLessonAPI(g *echo.Group, auth authGroups, svc *course.Service) {
	api := lessonApi{svc: svc}

	lg := g.Group("/lessons")
	lg.GET("", api.query, auth.optional)
	lg.POST("", api.create, auth.required...)
	lg.GET("/:id", api.retrieve, auth.optional)
	lg.PUT("/:id", api.update, auth.required...)
	lg.PATCH("/:id", api.update, auth.required...)
	lg.DELETE("/:id", api.destroy, auth.required...)
}

func (api *lessonApi) query(ctx echo.Context) error {
	var filter course.LessonFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Lesson{})
	}
	lessons, err := api.svc.QueryLessons(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) create(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	lsn, err := api.svc.CreateLesson(ctx.Request().Context(), contextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	lsn, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) update(ctx echo.Context) error {
	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	lsn, err := api.svc.UpdateLesson(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id"), data, isPartial(ctx))
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteLesson(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}
