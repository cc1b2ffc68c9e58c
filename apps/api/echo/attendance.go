package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	sheetsvc "github.com/trezcool/academia/services/sheet"
)

type attendanceApi struct {
	svc *attendance.Service
}

func registerAttendanceAPI(g *echo.Group, auth authGroups, svc *attendance.Service) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance", auth.required...)
	ag.GET("", api.query)
	ag.POST("", api.mark)
	ag.POST("/mark_bulk", api.markBulk)
	ag.GET("/export", api.export)
	ag.POST("/import", api.importSheet)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.PATCH("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

type MarkBulkResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func (api *attendanceApi) query(ctx echo.Context) error {
	var filter attendance.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Attendance{})
	}
	records, err := api.svc.Query(ctx.Request().Context(), contextIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	att, created, err := api.svc.Mark(ctx.Request().Context(), contextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	if created {
		return ctx.JSON(http.StatusCreated, att)
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) markBulk(ctx echo.Context) error {
	var data attendance.BulkAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkAttendance")
	}
	res, err := api.svc.MarkBulk(ctx.Request().Context(), contextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking bulk attendance")
	}
	return ctx.JSON(http.StatusOK, MarkBulkResponse{Status: "marked", Count: res.Count})
}

// export writes the records visible to the caller as an XLSX workbook; it accepts the query filters.
func (api *attendanceApi) export(ctx echo.Context) error {
	var filter attendance.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	records, err := api.svc.Query(ctx.Request().Context(), contextIdentity(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}

	var buf bytes.Buffer
	if err = sheetsvc.WriteAttendance(&buf, records); err != nil {
		return errors.Wrap(err, "writing attendance sheet")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="attendance.xlsx"`)
	return ctx.Blob(http.StatusOK, sheetsvc.ContentType, buf.Bytes())
}

// importSheet marks a course day from an uploaded workbook (multipart fields: course, date, file).
func (api *attendanceApi) importSheet(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	records, err := sheetsvc.ReadBulkRecords(file)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "invalid spreadsheet"})
	}
	data := attendance.BulkAttendance{
		CourseID: ctx.FormValue("course"),
		Date:     ctx.FormValue("date"),
		Records:  records,
	}
	res, err := api.svc.MarkBulk(ctx.Request().Context(), contextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "importing attendance")
	}
	return ctx.JSON(http.StatusOK, MarkBulkResponse{Status: "marked", Count: res.Count})
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	att, err := api.svc.Get(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	var data attendance.UpdateAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendance")
	}
	att, err := api.svc.UpdateStatus(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextIdentity(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}
