package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// OrderingFields are the fields courses may be ordered by.
var OrderingFields = []string{"title", "created_at"}

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	InstructorID string    `json:"instructor"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

type NewCourse struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Nil fields keep their current value.
type UpdateCourse struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description"`
}

// Validate checks uc. A full update (partial == false) requires every required field.
func (uc *UpdateCourse) Validate(validate *validator.Validate, partial bool) error {
	uc.Title = core.CleanStringPtr(uc.Title)
	uc.Description = core.CleanStringPtr(uc.Description)
	if !partial && uc.Title == nil {
		return requiredFieldErr("title")
	}
	return validate.Struct(uc)
}

func (uc UpdateCourse) apply(crs Course) Course {
	if uc.Title != nil {
		crs.Title = *uc.Title
	}
	if uc.Description != nil {
		crs.Description = *uc.Description
	}
	return crs
}

type QueryFilter struct {
	Search       string `query:"search"`
	InstructorID string `query:"instructor"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.InstructorID = core.CleanString(qf.InstructorID)
}

type Lesson struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewLesson struct {
	CourseID string `json:"course" validate:"required"`
	Title    string `json:"title" validate:"required,notblank,max=200"`
	Content  string `json:"content"`
	Order    int    `json:"order" validate:"gte=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.CourseID = core.CleanString(nl.CourseID)
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
// A lesson cannot move to another course.
type UpdateLesson struct {
	Title   *string `json:"title" validate:"omitempty,notblank,max=200"`
	Content *string `json:"content"`
	Order   *int    `json:"order" validate:"omitempty,gte=0"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate, partial bool) error {
	ul.Title = core.CleanStringPtr(ul.Title)
	if !partial && ul.Title == nil {
		return requiredFieldErr("title")
	}
	return validate.Struct(ul)
}

func (ul UpdateLesson) apply(lsn Lesson) Lesson {
	if ul.Title != nil {
		lsn.Title = *ul.Title
	}
	if ul.Content != nil {
		lsn.Content = *ul.Content
	}
	if ul.Order != nil {
		lsn.Order = *ul.Order
	}
	return lsn
}

type LessonFilter struct {
	CourseID string `query:"course"`
}

func requiredFieldErr(field string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field is required"})
}
