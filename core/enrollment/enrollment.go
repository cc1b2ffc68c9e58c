package enrollment

import (
	"context"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student"`
	CourseID   string    `json:"course"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

type (
	Repository interface {
		// EnsureEnrollment atomically creates the (student, course) enrollment unless it exists.
		// It returns the stored enrollment and whether this call created it.
		EnsureEnrollment(ctx context.Context, enr Enrollment) (Enrollment, bool, error)
		// QueryEnrolledCourses returns the courses the student is enrolled in.
		QueryEnrolledCourses(ctx context.Context, studentID string) ([]course.Course, error)
		// QueryStudents returns the students enrolled in the course.
		QueryStudents(ctx context.Context, courseID string) ([]user.User, error)
	}

	Service struct {
		repo       Repository
		courseRepo course.Repository
	}
)

func NewService(repo Repository, courseRepo course.Repository) *Service {
	return &Service{repo: repo, courseRepo: courseRepo}
}

// Enroll enrolls the calling student in a course. Enrolling twice is a no-op:
// the existing enrollment is returned and created is false.
func (svc *Service) Enroll(ctx context.Context, identity *access.Identity, courseID string) (enr Enrollment, created bool, err error) {
	if identity == nil {
		return Enrollment{}, false, core.ErrUnauthenticated
	}
	crs, err := svc.courseRepo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, false, err
	}
	res := access.Resource{Kind: access.KindEnrollment, OwnerID: crs.InstructorID}
	if err = access.Authorize(identity, access.ActionCreate, res); err != nil {
		return Enrollment{}, false, err
	}
	return svc.repo.EnsureEnrollment(ctx, Enrollment{
		StudentID:  identity.UserID,
		CourseID:   crs.ID,
		EnrolledAt: time.Now().UTC(),
	})
}

// EnrolledCourses returns the courses a student is enrolled in.
// For an instructor, it returns the courses they teach.
func (svc *Service) EnrolledCourses(ctx context.Context, identity *access.Identity) ([]course.Course, error) {
	if err := access.Authorize(identity, access.ActionList, access.Resource{Kind: access.KindEnrollment}); err != nil {
		return nil, err
	}
	if identity.IsInstructor() {
		return svc.courseRepo.QueryCourses(ctx, course.QueryFilter{InstructorID: identity.UserID}, nil)
	}
	return svc.repo.QueryEnrolledCourses(ctx, identity.UserID)
}

// Students returns the roster of a course. Only the course instructor may read it.
func (svc *Service) Students(ctx context.Context, identity *access.Identity, courseID string) ([]user.Public, error) {
	if identity == nil {
		return nil, core.ErrUnauthenticated
	}
	crs, err := svc.courseRepo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err = access.Authorize(identity, access.ActionList, access.Resource{Kind: access.KindRoster, OwnerID: crs.InstructorID}); err != nil {
		return nil, err
	}

	students, err := svc.repo.QueryStudents(ctx, crs.ID)
	if err != nil {
		return nil, err
	}
	roster := make([]user.Public, 0, len(students))
	for _, s := range students {
		roster = append(roster, s.Public())
	}
	return roster, nil
}
