package attendance

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("attendance")
	errInvalidStudent = errors.New("invalid student")
)

type (
	Repository interface {
		// UpsertAttendance atomically creates the (course, student, date) record or
		// updates its status. It returns the stored record and whether this call created it.
		UpsertAttendance(ctx context.Context, att Attendance) (Attendance, bool, error)
		GetAttendance(ctx context.Context, id string) (Attendance, error)
		// QueryAttendance returns the records visible in scope, ordered by date then student name.
		QueryAttendance(ctx context.Context, filter QueryFilter, scope access.Scope) ([]Attendance, error)
		DeleteAttendance(ctx context.Context, id string) error
	}

	Service struct {
		repo       Repository
		courseRepo course.Repository
		userRepo   user.Repository
		validate   *validator.Validate
	}
)

func NewService(repo Repository, courseRepo course.Repository, userRepo user.Repository, validate *validator.Validate) *Service {
	return &Service{
		repo:       repo,
		courseRepo: courseRepo,
		userRepo:   userRepo,
		validate:   validate,
	}
}

// loadOwnedCourse loads a course and checks identity may write its attendance.
func (svc *Service) loadOwnedCourse(ctx context.Context, identity *access.Identity, courseID string, action access.Action) (course.Course, error) {
	if identity == nil {
		return course.Course{}, core.ErrUnauthenticated
	}
	crs, err := svc.courseRepo.GetCourse(ctx, courseID)
	if err != nil {
		return course.Course{}, err
	}
	if err = access.Authorize(identity, action, access.Resource{Kind: access.KindAttendance, OwnerID: crs.InstructorID}); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

// checkStudent ensures id belongs to an existing student.
func (svc *Service) checkStudent(ctx context.Context, id string) error {
	usr, err := svc.userRepo.GetUser(ctx, user.GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(errInvalidStudent, core.FieldError{Field: "student", Error: errInvalidStudent.Error()})
		}
		return errors.Wrap(err, "getting student")
	}
	if !usr.IsStudent() {
		return core.NewValidationError(errInvalidStudent, core.FieldError{Field: "student", Error: errInvalidStudent.Error()})
	}
	return nil
}

// Mark records a single student's attendance, creating or updating the (course, student, date) record.
func (svc *Service) Mark(ctx context.Context, identity *access.Identity, na NewAttendance) (Attendance, bool, error) {
	if identity == nil {
		return Attendance{}, false, core.ErrUnauthenticated
	}
	if err := na.Validate(svc.validate); err != nil {
		return Attendance{}, false, err
	}
	crs, err := svc.loadOwnedCourse(ctx, identity, na.CourseID, access.ActionCreate)
	if err != nil {
		return Attendance{}, false, err
	}
	if err = svc.checkStudent(ctx, na.StudentID); err != nil {
		return Attendance{}, false, err
	}
	return svc.repo.UpsertAttendance(ctx, Attendance{
		CourseID:  crs.ID,
		StudentID: na.StudentID,
		Date:      na.Date,
		Status:    na.Status,
	})
}

// MarkBulk records the attendance of many students of a course for one date.
//
// Each record is upserted on its own, in order; there is no batch transaction.
// When a record fails, processing stops and a *BulkError carrying the number of
// applied records is returned. A student listed twice ends with the last status.
func (svc *Service) MarkBulk(ctx context.Context, identity *access.Identity, ba BulkAttendance) (BulkResult, error) {
	if identity == nil {
		return BulkResult{}, core.ErrUnauthenticated
	}
	if err := ba.Validate(svc.validate); err != nil {
		return BulkResult{}, err
	}
	crs, err := svc.loadOwnedCourse(ctx, identity, ba.CourseID, access.ActionCreate)
	if err != nil {
		return BulkResult{}, err
	}

	var res BulkResult
	for i, rec := range ba.Records {
		if err = ctx.Err(); err != nil {
			return res, &BulkError{Applied: res.Count, Index: i, Err: err}
		}
		if err = svc.checkStudent(ctx, rec.StudentID); err != nil {
			return res, &BulkError{Applied: res.Count, Index: i, Err: err}
		}
		_, _, err = svc.repo.UpsertAttendance(ctx, Attendance{
			CourseID:  crs.ID,
			StudentID: rec.StudentID,
			Date:      ba.Date,
			Status:    rec.Status,
		})
		if err != nil {
			return res, &BulkError{Applied: res.Count, Index: i, Err: err}
		}
		res.Count++
	}
	return res, nil
}

func (svc *Service) Query(ctx context.Context, identity *access.Identity, filter QueryFilter) ([]Attendance, error) {
	scope, err := access.ScopeFor(identity)
	if err != nil {
		return nil, err
	}
	filter.Clean()
	if filter.Date != "" {
		if _, err = time.Parse(core.DateLayout, filter.Date); err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date format; use YYYY-MM-DD"})
		}
	}
	return svc.repo.QueryAttendance(ctx, filter, scope)
}

// Get returns a record visible to identity. Records out of scope are not found.
func (svc *Service) Get(ctx context.Context, identity *access.Identity, id string) (Attendance, error) {
	scope, err := access.ScopeFor(identity)
	if err != nil {
		return Attendance{}, err
	}
	att, err := svc.repo.GetAttendance(ctx, id)
	if err != nil {
		return Attendance{}, err
	}
	crs, err := svc.courseRepo.GetCourse(ctx, att.CourseID)
	if err != nil {
		return Attendance{}, errors.Wrap(err, "getting attendance course")
	}
	if !scope.Allows(crs.InstructorID, att.StudentID) {
		return Attendance{}, ErrNotFound
	}
	return att, nil
}

// loadOwned returns a record whose course identity owns.
// Records that identity cannot see are not found; visible records of another course are forbidden.
func (svc *Service) loadOwned(ctx context.Context, identity *access.Identity, id string, action access.Action) (Attendance, error) {
	att, err := svc.Get(ctx, identity, id)
	if err != nil {
		return Attendance{}, err
	}
	if _, err = svc.loadOwnedCourse(ctx, identity, att.CourseID, action); err != nil {
		return Attendance{}, err
	}
	return att, nil
}

func (svc *Service) UpdateStatus(ctx context.Context, identity *access.Identity, id string, ua UpdateAttendance) (Attendance, error) {
	att, err := svc.loadOwned(ctx, identity, id, access.ActionUpdate)
	if err != nil {
		return Attendance{}, err
	}
	if err = ua.Validate(svc.validate); err != nil {
		return Attendance{}, err
	}
	att.Status = ua.Status
	att, _, err = svc.repo.UpsertAttendance(ctx, att)
	return att, err
}

func (svc *Service) Delete(ctx context.Context, identity *access.Identity, id string) error {
	if _, err := svc.loadOwned(ctx, identity, id, access.ActionDelete); err != nil {
		return err
	}
	return svc.repo.DeleteAttendance(ctx, id)
}
