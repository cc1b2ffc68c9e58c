package coursework_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/user"
	dummydb "github.com/trezcool/academia/storage/database/dummy"
	"github.com/trezcool/academia/testutil"
)

// outbox records the messages instead of sending them.
type outbox struct {
	sync.Mutex
	messages []*core.EmailMessage
}

func (o *outbox) SendMessages(messages ...*core.EmailMessage) {
	o.Lock()
	o.messages = append(o.messages, messages...)
	o.Unlock()
}

type fixture struct {
	svc        *coursework.Service
	repo       coursework.Repository
	courseRepo course.Repository
	mail       *outbox

	prof    user.User
	other   user.User
	student user.User
	crs     course.Course
	asg     coursework.Assignment
}

func setup(t *testing.T) fixture {
	conf := testutil.NewConfig()
	validate, _ := testutil.NewValidator()

	db := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	f := fixture{
		repo:       dummydb.NewCourseworkRepository(db),
		courseRepo: dummydb.NewCourseRepository(db),
		mail:       new(outbox),
	}
	f.svc = coursework.NewService(f.repo, f.courseRepo, usrRepo, f.mail, validate, testutil.NewLogger(conf))

	f.prof = testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	f.other = testutil.CreateUser(t, usrRepo, "Other", "other", user.RoleInstructor)
	f.student = testutil.CreateUser(t, usrRepo, "Jane", "jane", user.RoleStudent)
	f.crs = testutil.CreateCourse(t, f.courseRepo, f.prof, "Algebra")
	f.asg = testutil.CreateAssignment(t, f.repo, f.crs, "Homework")
	return f
}

func identity(usr user.User) *access.Identity {
	return &access.Identity{UserID: usr.ID, Role: usr.Role}
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, nil, coursework.NewSubmission{AssignmentID: f.asg.ID, Content: "42"})
	assert.Equal(t, core.ErrUnauthenticated, err)

	_, err = f.svc.Submit(ctx, identity(f.prof), coursework.NewSubmission{AssignmentID: f.asg.ID, Content: "42"})
	assert.Equal(t, core.ErrForbidden, err)

	_, err = f.svc.Submit(ctx, identity(f.student), coursework.NewSubmission{AssignmentID: "lol", Content: "42"})
	if vErr, ok := errors.Cause(err).(*core.ValidationError); assert.True(t, ok, "%v", err) {
		assert.Equal(t, []core.FieldError{{Field: "assignment", Error: "invalid assignment"}}, vErr.Fields)
	}

	first, err := f.svc.Submit(ctx, identity(f.student), coursework.NewSubmission{AssignmentID: f.asg.ID, Content: "42"})
	if assert.NoError(t, err) {
		assert.Equal(t, f.student.ID, first.StudentID)
		assert.Equal(t, "42", first.Content)
	}

	_, err = f.svc.Submit(ctx, identity(f.student), coursework.NewSubmission{AssignmentID: f.asg.ID, Content: "43"})
	assert.Equal(t, coursework.ErrAlreadySubmitted, err)

	kept, err := f.svc.GetSubmission(ctx, identity(f.student), first.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, "42", kept.Content)
	}
}

func TestService_GetSubmission(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sub := testutil.CreateSubmission(t, f.repo, f.asg, f.student, "42")

	tests := []struct {
		name     string
		identity *access.Identity
		wantErr  error
	}{
		{name: "anonymous", wantErr: core.ErrUnauthenticated},
		{name: "submitter", identity: identity(f.student)},
		{name: "course instructor", identity: identity(f.prof)},
		{name: "other instructor", identity: identity(f.other), wantErr: coursework.ErrSubmissionNotFound},
		{name: "other student", identity: &access.Identity{UserID: "lol", Role: user.RoleStudent}, wantErr: coursework.ErrSubmissionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.GetSubmission(ctx, tt.identity, sub.ID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, sub, got)
			}
		})
	}
}

func TestService_Grade(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sub := testutil.CreateSubmission(t, f.repo, f.asg, f.student, "42")
	grade, feedback := 18.0, "Nice"

	_, err := f.svc.Grade(ctx, identity(f.other), sub.ID, coursework.GradeSubmission{Grade: &grade}, false)
	assert.Equal(t, core.ErrForbidden, err)
	_, err = f.svc.Grade(ctx, identity(f.student), sub.ID, coursework.GradeSubmission{Grade: &grade}, false)
	assert.Equal(t, core.ErrForbidden, err)
	_, err = f.svc.Grade(ctx, identity(f.prof), sub.ID, coursework.GradeSubmission{}, false)
	assert.Error(t, err)
	assert.Empty(t, f.mail.messages)

	graded, err := f.svc.Grade(ctx, identity(f.prof), sub.ID, coursework.GradeSubmission{Grade: &grade, Feedback: &feedback}, false)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, 18.0, graded.Grade.Float64)
	assert.Equal(t, "Nice", graded.Feedback.String)

	if assert.Len(t, f.mail.messages, 1) {
		msg := f.mail.messages[0]
		assert.Equal(t, "submission_graded", msg.TemplateName)
		assert.Equal(t, "Your submission has been graded", msg.Subject)
		if assert.Len(t, msg.To, 1) {
			assert.Equal(t, f.student.Email, msg.To[0].Address)
			assert.Equal(t, "Jane", msg.To[0].Name)
		}
	}
}

func TestService_Grade_partial(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sub := testutil.CreateSubmission(t, f.repo, f.asg, f.student, "42")
	grade, regrade, feedback, fixed := 12.0, 15.0, "Check question 2", "Check question 3"

	_, err := f.svc.Grade(ctx, identity(f.prof), sub.ID, coursework.GradeSubmission{Feedback: &feedback}, true)
	if vErr, ok := errors.Cause(err).(*core.ValidationError); assert.True(t, ok, "%v", err) {
		assert.Equal(t, []core.FieldError{{Field: "grade", Error: "this field is required"}}, vErr.Fields)
	}

	graded, err := f.svc.Grade(ctx, identity(f.prof), sub.ID, coursework.GradeSubmission{Grade: &grade, Feedback: &feedback}, true)
	if !assert.NoError(t, err) {
		return
	}

	t.Run("feedback only", func(t *testing.T) {
		got, err := f.svc.Grade(ctx, identity(f.prof), sub.ID, coursework.GradeSubmission{Feedback: &fixed}, true)
		if assert.NoError(t, err) {
			assert.Equal(t, graded.Grade, got.Grade)
			assert.Equal(t, fixed, got.Feedback.String)
		}
	})

	t.Run("grade only", func(t *testing.T) {
		got, err := f.svc.Grade(ctx, identity(f.prof), sub.ID, coursework.GradeSubmission{Grade: &regrade}, true)
		if assert.NoError(t, err) {
			assert.Equal(t, regrade, got.Grade.Float64)
			assert.Equal(t, fixed, got.Feedback.String)
		}
	})

	t.Run("full update clears feedback", func(t *testing.T) {
		got, err := f.svc.Grade(ctx, identity(f.prof), sub.ID, coursework.GradeSubmission{Grade: &grade}, false)
		if assert.NoError(t, err) {
			assert.Equal(t, grade, got.Grade.Float64)
			assert.False(t, got.Feedback.Valid)
		}
	})
}

func TestService_CreateAssignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	na := coursework.NewAssignment{CourseID: f.crs.ID, Title: "Homework 2", DueDate: f.asg.DueDate}

	_, err := f.svc.CreateAssignment(ctx, nil, na)
	assert.Equal(t, core.ErrUnauthenticated, err)
	_, err = f.svc.CreateAssignment(ctx, identity(f.other), na)
	assert.Equal(t, core.ErrForbidden, err)

	asg, err := f.svc.CreateAssignment(ctx, identity(f.prof), na)
	if assert.NoError(t, err) {
		assert.Equal(t, f.crs.ID, asg.CourseID)
		assert.Equal(t, "Homework 2", asg.Title)
	}
}

func TestRepository_CreateSubmission_unknownRows(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.repo.CreateSubmission(ctx, coursework.Submission{AssignmentID: "lol", StudentID: f.student.ID, Content: "42"})
	assert.Equal(t, coursework.ErrAssignmentNotFound, err)
	_, err = f.repo.CreateSubmission(ctx, coursework.Submission{AssignmentID: f.asg.ID, StudentID: "lol", Content: "42"})
	assert.Equal(t, user.ErrNotFound, err)
}
