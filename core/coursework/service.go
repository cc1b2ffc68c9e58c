package coursework

import (
	"context"
	"fmt"
	"net/mail"
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
	ErrAssignmentNotFound = core.NewNotFoundError("assignment")
	ErrSubmissionNotFound = core.NewNotFoundError("submission")
	ErrAlreadySubmitted   = core.NewConflictError("You have already submitted this assignment.")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		// DeleteAssignment deletes the assignment along with its submissions, atomically.
		DeleteAssignment(ctx context.Context, id string) error

		// CreateSubmission returns ErrAlreadySubmitted when the student already submitted the assignment.
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// QuerySubmissions returns the submissions visible in scope.
		QuerySubmissions(ctx context.Context, filter SubmissionFilter, scope access.Scope) ([]Submission, error)
		UpdateSubmissionGrade(ctx context.Context, sub Submission) (Submission, error)
	}

	Service struct {
		repo       Repository
		courseRepo course.Repository
		userRepo   user.Repository
		mailSvc    core.EmailService
		validate   *validator.Validate
		logger     core.Logger
	}
)

func NewService(
	repo Repository,
	courseRepo course.Repository,
	userRepo user.Repository,
	mailSvc core.EmailService,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		courseRepo: courseRepo,
		userRepo:   userRepo,
		mailSvc:    mailSvc,
		validate:   validate,
		logger:     logger,
	}
}

// courseOwner returns the instructor of the course an assignment belongs to.
func (svc *Service) courseOwner(ctx context.Context, asg Assignment) (string, error) {
	crs, err := svc.courseRepo.GetCourse(ctx, asg.CourseID)
	if err != nil {
		return "", errors.Wrap(err, "getting assignment course")
	}
	return crs.InstructorID, nil
}

// Assignments

func (svc *Service) QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	filter.CourseID = core.CleanString(filter.CourseID)
	return svc.repo.QueryAssignments(ctx, filter)
}

func (svc *Service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *Service) CreateAssignment(ctx context.Context, identity *access.Identity, na NewAssignment) (Assignment, error) {
	if identity == nil {
		return Assignment{}, core.ErrUnauthenticated
	}
	if err := na.Validate(svc.validate); err != nil {
		return Assignment{}, err
	}
	crs, err := svc.courseRepo.GetCourse(ctx, na.CourseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return Assignment{}, core.NewValidationError(err, core.FieldError{Field: "course", Error: "invalid course"})
		}
		return Assignment{}, err
	}
	if err = access.Authorize(identity, access.ActionCreate, access.Resource{Kind: access.KindAssignment, OwnerID: crs.InstructorID}); err != nil {
		return Assignment{}, err
	}
	return svc.repo.CreateAssignment(ctx, Assignment{
		CourseID:    crs.ID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) loadOwnedAssignment(ctx context.Context, identity *access.Identity, id string, action access.Action) (Assignment, error) {
	if identity == nil {
		return Assignment{}, core.ErrUnauthenticated
	}
	asg, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	owner, err := svc.courseOwner(ctx, asg)
	if err != nil {
		return Assignment{}, err
	}
	if err = access.Authorize(identity, action, access.Resource{Kind: access.KindAssignment, OwnerID: owner}); err != nil {
		return Assignment{}, err
	}
	return asg, nil
}

func (svc *Service) UpdateAssignment(ctx context.Context, identity *access.Identity, id string, ua UpdateAssignment, partial bool) (Assignment, error) {
	asg, err := svc.loadOwnedAssignment(ctx, identity, id, access.ActionUpdate)
	if err != nil {
		return Assignment{}, err
	}
	if err = ua.Validate(svc.validate, partial); err != nil {
		return Assignment{}, err
	}
	return svc.repo.UpdateAssignment(ctx, ua.apply(asg))
}

func (svc *Service) DeleteAssignment(ctx context.Context, identity *access.Identity, id string) error {
	if _, err := svc.loadOwnedAssignment(ctx, identity, id, access.ActionDelete); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

// Submissions

// Submit records the calling student's submission. A student submits an assignment once;
// a second submission yields ErrAlreadySubmitted and leaves the first one untouched.
func (svc *Service) Submit(ctx context.Context, identity *access.Identity, ns NewSubmission) (Submission, error) {
	if err := access.Authorize(identity, access.ActionCreate, access.Resource{Kind: access.KindSubmission}); err != nil {
		return Submission{}, err
	}
	if err := ns.Validate(svc.validate); err != nil {
		return Submission{}, err
	}
	asg, err := svc.repo.GetAssignment(ctx, ns.AssignmentID)
	if err != nil {
		if errors.Cause(err) == ErrAssignmentNotFound {
			return Submission{}, core.NewValidationError(err, core.FieldError{Field: "assignment", Error: "invalid assignment"})
		}
		return Submission{}, err
	}
	return svc.repo.CreateSubmission(ctx, Submission{
		AssignmentID: asg.ID,
		StudentID:    identity.UserID,
		Content:      ns.Content,
		SubmittedAt:  time.Now().UTC(),
	})
}

func (svc *Service) QuerySubmissions(ctx context.Context, identity *access.Identity, filter SubmissionFilter) ([]Submission, error) {
	scope, err := access.ScopeFor(identity)
	if err != nil {
		return nil, err
	}
	filter.AssignmentID = core.CleanString(filter.AssignmentID)
	return svc.repo.QuerySubmissions(ctx, filter, scope)
}

// GetSubmission returns a submission visible to identity. Submissions out of scope are not found.
func (svc *Service) GetSubmission(ctx context.Context, identity *access.Identity, id string) (Submission, error) {
	scope, err := access.ScopeFor(identity)
	if err != nil {
		return Submission{}, err
	}
	sub, asg, err := svc.loadSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	owner, err := svc.courseOwner(ctx, asg)
	if err != nil {
		return Submission{}, err
	}
	if !scope.Allows(owner, sub.StudentID) {
		return Submission{}, ErrSubmissionNotFound
	}
	return sub, nil
}

func (svc *Service) loadSubmission(ctx context.Context, id string) (Submission, Assignment, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, Assignment{}, err
	}
	asg, err := svc.repo.GetAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, Assignment{}, errors.Wrap(err, "getting submission assignment")
	}
	return sub, asg, nil
}

// Grade sets the grade and feedback of a submission. Only the instructor of the
// assignment's course may grade. The student is notified by email.
// A partial grading keeps the stored grade or feedback it leaves out, but a submission never ends up without a grade.
func (svc *Service) Grade(ctx context.Context, identity *access.Identity, id string, gs GradeSubmission, partial bool) (Submission, error) {
	if identity == nil {
		return Submission{}, core.ErrUnauthenticated
	}
	sub, asg, err := svc.loadSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	owner, err := svc.courseOwner(ctx, asg)
	if err != nil {
		return Submission{}, err
	}
	if err = access.Authorize(identity, access.ActionGrade, access.Resource{Kind: access.KindSubmission, OwnerID: owner}); err != nil {
		return Submission{}, err
	}
	if err = gs.Validate(svc.validate, partial); err != nil {
		return Submission{}, err
	}

	sub = gs.apply(sub, partial)
	if !sub.Grade.Valid {
		return Submission{}, errGradeRequired
	}
	sub, err = svc.repo.UpdateSubmissionGrade(ctx, sub)
	if err != nil {
		return Submission{}, err
	}

	svc.notifyGraded(ctx, sub, asg)
	return sub, nil
}

// notifyGraded emails the student about their grade. Failures are logged only.
func (svc *Service) notifyGraded(ctx context.Context, sub Submission, asg Assignment) {
	student, err := svc.userRepo.GetUser(ctx, user.GetFilter{ID: sub.StudentID})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("getting graded student: %v", err), err)
		return
	}
	if student.Email == "" {
		return
	}

	name := student.Name
	if name == "" {
		name = student.Username
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: student.Email}},
		Subject:      "Your submission has been graded",
		TemplateName: "submission_graded",
		TemplateData: gradedMailData{
			StudentName:     name,
			AssignmentTitle: asg.Title,
			Grade:           sub.Grade.Float64,
			Feedback:        sub.Feedback.String,
		},
	})
}
