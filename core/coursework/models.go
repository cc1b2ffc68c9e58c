package coursework

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
)

type Assignment struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`   // UTC
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type NewAssignment struct {
	CourseID    string    `json:"course" validate:"required"`
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.CourseID = core.CleanString(na.CourseID)
	na.Title = core.CleanString(na.Title)
	na.DueDate = na.DueDate.UTC()
	return validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
// An assignment cannot move to another course.
type UpdateAssignment struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate, partial bool) error {
	ua.Title = core.CleanStringPtr(ua.Title)
	if !partial {
		var flds []core.FieldError
		if ua.Title == nil {
			flds = append(flds, core.FieldError{Field: "title", Error: "this field is required"})
		}
		if ua.DueDate == nil {
			flds = append(flds, core.FieldError{Field: "due_date", Error: "this field is required"})
		}
		if flds != nil {
			return core.NewValidationError(nil, flds...)
		}
	}
	return validate.Struct(ua)
}

func (ua UpdateAssignment) apply(asg Assignment) Assignment {
	if ua.Title != nil {
		asg.Title = *ua.Title
	}
	if ua.Description != nil {
		asg.Description = *ua.Description
	}
	if ua.DueDate != nil {
		asg.DueDate = ua.DueDate.UTC()
	}
	return asg
}

type AssignmentFilter struct {
	CourseID string `query:"course"`
}

type Submission struct {
	ID           string       `json:"id"`
	AssignmentID string       `json:"assignment"`
	StudentID    string       `json:"student"`
	Content      string       `json:"content"`
	Grade        null.Float64 `json:"grade"`
	Feedback     null.String  `json:"feedback"`
	SubmittedAt  time.Time    `json:"submitted_at"` // UTC
}

// NewSubmission carries no student: a submission always belongs to its submitter.
type NewSubmission struct {
	AssignmentID string `json:"assignment" validate:"required"`
	Content      string `json:"content" validate:"required,notblank"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.AssignmentID = core.CleanString(ns.AssignmentID)
	return validate.Struct(ns)
}

var errGradeRequired = core.NewValidationError(nil, core.FieldError{Field: "grade", Error: "this field is required"})

// GradeSubmission grades a submission. A partial grading keeps the fields left out.
type GradeSubmission struct {
	Grade    *float64 `json:"grade" validate:"omitempty,gte=0"`
	Feedback *string  `json:"feedback"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate, partial bool) error {
	gs.Feedback = core.CleanStringPtr(gs.Feedback)
	if !partial && gs.Grade == nil {
		return errGradeRequired
	}
	return validate.Struct(gs)
}

func (gs GradeSubmission) apply(sub Submission, partial bool) Submission {
	if gs.Grade != nil || !partial {
		sub.Grade = null.Float64FromPtr(gs.Grade)
	}
	if gs.Feedback != nil || !partial {
		sub.Feedback = null.StringFromPtr(gs.Feedback)
	}
	return sub
}

type SubmissionFilter struct {
	AssignmentID string `query:"assignment"`
}

// gradedMailData feeds the submission_graded email template.
type gradedMailData struct {
	StudentName     string
	AssignmentTitle string
	Grade           float64
	Feedback        string
}
