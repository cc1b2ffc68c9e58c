package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
)

type courseApi struct {
	svc    *course.Service
	enrSvc *enrollment.Service
}

func registerCourseAPI(g *echo.Group, auth authGroups, svc *course.Service, enrSvc *enrollment.Service) {
	api := courseApi{svc: svc, enrSvc: enrSvc}

	cg := g.Group("/courses")
	cg.GET("", api.query, auth.optional)
	cg.POST("", api.create, auth.required...)
	cg.GET("/enrolled", api.enrolled, auth.required...)

	cg.GET("/:id", api.retrieve, auth.optional)
	cg.PUT("/:id", api.update, auth.required...)
	cg.PATCH("/:id", api.update, auth.required...)
	cg.DELETE("/:id", api.destroy, auth.required...)
	cg.POST("/:id/enroll", api.enroll, auth.required...)
	cg.GET("/:id/students", api.students, auth.required...)
}

type EnrollResponse struct {
	Status     string                `json:"status"`
	Enrollment enrollment.Enrollment `json:"enrollment"`
}

func (api *courseApi) query(ctx echo.Context) error {
	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	crs, err := api.svc.CreateCourse(ctx.Request().Context(), contextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	crs, err := api.svc.UpdateCourse(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id"), data, isPartial(ctx))
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteCourse(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	enr, created, err := api.enrSvc.Enroll(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, EnrollResponse{Status: "enrolled", Enrollment: enr})
}

func (api *courseApi) enrolled(ctx echo.Context) error {
	courses, err := api.enrSvc.EnrolledCourses(ctx.Request().Context(), contextIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "querying enrolled courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) students(ctx echo.Context) error {
	students, err := api.enrSvc.Students(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course students")
	}
	return ctx.JSON(http.StatusOK, students)
}
