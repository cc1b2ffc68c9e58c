package attendance

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
)

// Attendance is unique per (course, student, date).
type Attendance struct {
	ID          string `json:"id"`
	CourseID    string `json:"course"`
	StudentID   string `json:"student"`
	StudentName string `json:"student_name"` // read-only: the student's username
	Date        string `json:"date"`         // YYYY-MM-DD
	Status      Status `json:"status"`
}

// NewAttendance marks a single student. Status defaults to PRESENT.
type NewAttendance struct {
	CourseID  string `json:"course" validate:"required"`
	StudentID string `json:"student" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    Status `json:"status" validate:"omitempty,oneof=PRESENT ABSENT"`
}

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.CourseID = core.CleanString(na.CourseID)
	na.StudentID = core.CleanString(na.StudentID)
	na.Date = core.CleanString(na.Date)
	na.Status = Status(core.CleanString(string(na.Status)))
	if na.Status == "" {
		na.Status = StatusPresent
	}
	return validate.Struct(na)
}

type UpdateAttendance struct {
	Status Status `json:"status" validate:"required,oneof=PRESENT ABSENT"`
}

func (ua *UpdateAttendance) Validate(validate *validator.Validate) error {
	ua.Status = Status(core.CleanString(string(ua.Status)))
	return validate.Struct(ua)
}

type BulkRecord struct {
	StudentID string `json:"student" validate:"required"`
	Status    Status `json:"status" validate:"required,oneof=PRESENT ABSENT"`
}

// BulkAttendance marks many students of a course for one date.
type BulkAttendance struct {
	CourseID string       `json:"course" validate:"required"`
	Date     string       `json:"date" validate:"required,datetime=2006-01-02"`
	Records  []BulkRecord `json:"records" validate:"required,min=1,dive"`
}

func (ba *BulkAttendance) Validate(validate *validator.Validate) error {
	ba.CourseID = core.CleanString(ba.CourseID)
	ba.Date = core.CleanString(ba.Date)
	for i := range ba.Records {
		ba.Records[i].StudentID = core.CleanString(ba.Records[i].StudentID)
		ba.Records[i].Status = Status(core.CleanString(string(ba.Records[i].Status)))
	}
	return validate.Struct(ba)
}

type BulkResult struct {
	Count int `json:"count"`
}

// BulkError reports a bulk marking that stopped at record Index.
// The Applied records before it were kept.
type BulkError struct {
	Applied int
	Index   int
	Err     error
}

func (err BulkError) Error() string {
	return fmt.Sprintf("record %d: %v", err.Index, err.Err)
}

type QueryFilter struct {
	CourseID  string `query:"course"`
	StudentID string `query:"student"`
	Date      string `query:"date"`
}

func (qf *QueryFilter) Clean() {
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Date = core.CleanString(qf.Date)
}
