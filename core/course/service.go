package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("course")
	ErrLessonNotFound = core.NewNotFoundError("lesson")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Course.Title or Course.Description.
		QueryCourses(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		// DeleteCourse deletes the course along with its lessons, assignments (and their submissions),
		// enrollments and attendance records, atomically.
		DeleteCourse(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		// QueryLessons returns lessons ordered by Lesson.Order.
		QueryLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) QueryCourses(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	filter.Clean()
	return svc.repo.QueryCourses(ctx, filter, core.CleanOrdering(ordering, OrderingFields...))
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) CreateCourse(ctx context.Context, identity *access.Identity, nc NewCourse) (Course, error) {
	if err := access.Authorize(identity, access.ActionCreate, access.Resource{Kind: access.KindCourse}); err != nil {
		return Course{}, err
	}
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	return svc.repo.CreateCourse(ctx, Course{
		Title:        nc.Title,
		Description:  nc.Description,
		InstructorID: identity.UserID,
		CreatedAt:    time.Now().UTC(),
	})
}

// loadOwned loads a course and checks identity may act on it.
func (svc *Service) loadOwned(ctx context.Context, identity *access.Identity, id string, kind access.Kind, action access.Action) (Course, error) {
	if identity == nil {
		return Course{}, core.ErrUnauthenticated
	}
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = access.Authorize(identity, action, access.Resource{Kind: kind, OwnerID: crs.InstructorID}); err != nil {
		return Course{}, err
	}
	return crs, nil
}

func (svc *Service) UpdateCourse(ctx context.Context, identity *access.Identity, id string, uc UpdateCourse, partial bool) (Course, error) {
	crs, err := svc.loadOwned(ctx, identity, id, access.KindCourse, access.ActionUpdate)
	if err != nil {
		return Course{}, err
	}
	if err = uc.Validate(svc.validate, partial); err != nil {
		return Course{}, err
	}
	return svc.repo.UpdateCourse(ctx, uc.apply(crs))
}

func (svc *Service) DeleteCourse(ctx context.Context, identity *access.Identity, id string) error {
	if _, err := svc.loadOwned(ctx, identity, id, access.KindCourse, access.ActionDelete); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// Lessons

func (svc *Service) QueryLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error) {
	filter.CourseID = core.CleanString(filter.CourseID)
	return svc.repo.QueryLessons(ctx, filter)
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) CreateLesson(ctx context.Context, identity *access.Identity, nl NewLesson) (Lesson, error) {
	if identity == nil {
		return Lesson{}, core.ErrUnauthenticated
	}
	if err := nl.Validate(svc.validate); err != nil {
		return Lesson{}, err
	}
	if _, err := svc.loadOwned(ctx, identity, nl.CourseID, access.KindLesson, access.ActionCreate); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Lesson{}, core.NewValidationError(err, core.FieldError{Field: "course", Error: "invalid course"})
		}
		return Lesson{}, err
	}
	return svc.repo.CreateLesson(ctx, Lesson{
		CourseID:  nl.CourseID,
		Title:     nl.Title,
		Content:   nl.Content,
		Order:     nl.Order,
		CreatedAt: time.Now().UTC(),
	})
}

// loadOwnedLesson loads a lesson and checks identity may act on its course.
func (svc *Service) loadOwnedLesson(ctx context.Context, identity *access.Identity, id string, action access.Action) (Lesson, error) {
	if identity == nil {
		return Lesson{}, core.ErrUnauthenticated
	}
	lsn, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if _, err = svc.loadOwned(ctx, identity, lsn.CourseID, access.KindLesson, action); err != nil {
		return Lesson{}, err
	}
	return lsn, nil
}

func (svc *Service) UpdateLesson(ctx context.Context, identity *access.Identity, id string, ul UpdateLesson, partial bool) (Lesson, error) {
	lsn, err := svc.loadOwnedLesson(ctx, identity, id, access.ActionUpdate)
	if err != nil {
		return Lesson{}, err
	}
	if err = ul.Validate(svc.validate, partial); err != nil {
		return Lesson{}, err
	}
	return svc.repo.UpdateLesson(ctx, ul.apply(lsn))
}

func (svc *Service) DeleteLesson(ctx context.Context, identity *access.Identity, id string) error {
	if _, err := svc.loadOwnedLesson(ctx, identity, id, access.ActionDelete); err != nil {
		return err
	}
	return svc.repo.DeleteLesson(ctx, id)
}
