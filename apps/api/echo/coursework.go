package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/coursework"
)

type courseworkApi struct {
	svc *coursework.Service
}

func registerAssignmentAPI(g *echo.Group, auth authGroups, svc *coursework.Service) {
	api := courseworkApi{svc: svc}

	ag := g.Group("/assignments")
	ag.GET("", api.queryAssignments, auth.optional)
	ag.POST("", api.createAssignment, auth.required...)
	ag.GET("/:id", api.retrieveAssignment, auth.optional)
	ag.PUT("/:id", api.updateAssignment, auth.required...)
	ag.PATCH("/:id", api.updateAssignment, auth.required...)
	ag.DELETE("/:id", api.destroyAssignment, auth.required...)
}

func registerSubmissionAPI(g *echo.Group, auth authGroups, svc *coursework.Service) {
	api := courseworkApi{svc: svc}

	sg := g.Group("/submissions", auth.required...)
	sg.GET("", api.querySubmissions)
	sg.POST("", api.submit)
	sg.GET("/:id", api.retrieveSubmission)
	sg.PUT("/:id", api.grade)
	sg.PATCH("/:id", api.grade)
}

// Assignments

func (api *courseworkApi) queryAssignments(ctx echo.Context) error {
	var filter coursework.AssignmentFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []coursework.Assignment{})
	}
	assignments, err := api.svc.QueryAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *courseworkApi) createAssignment(ctx echo.Context) error {
	var data coursework.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	asg, err := api.svc.CreateAssignment(ctx.Request().Context(), contextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *courseworkApi) retrieveAssignment(ctx echo.Context) error {
	asg, err := api.svc.GetAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *courseworkApi) updateAssignment(ctx echo.Context) error {
	var data coursework.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	asg, err := api.svc.UpdateAssignment(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id"), data, isPartial(ctx))
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *courseworkApi) destroyAssignment(ctx echo.Context) error {
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Submissions

func (api *courseworkApi) querySubmissions(ctx echo.Context) error {
	var filter coursework.SubmissionFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []coursework.Submission{})
	}
	submissions, err := api.svc.QuerySubmissions(ctx.Request().Context(), contextIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, submissions)
}

func (api *courseworkApi) submit(ctx echo.Context) error {
	var data coursework.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	sub, err := api.svc.Submit(ctx.Request().Context(), contextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "submitting")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *courseworkApi) retrieveSubmission(ctx echo.Context) error {
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *courseworkApi) grade(ctx echo.Context) error {
	var data coursework.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	sub, err := api.svc.Grade(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id"), data, isPartial(ctx))
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
