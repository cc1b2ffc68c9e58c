//go:build integration

// Run against a live Postgres configured like the API (ENV=TEST, TEST_DATABASE_* variables):
//
//	go test -tags integration ./storage/database/sqlx/
package sqlxrepos_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
	"github.com/trezcool/academia/testutil"
)

var db *sqlx.DB

func TestMain(m *testing.M) {
	conf := core.NewConfig()
	setUp := func() error {
		if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
			return err
		}
		var err error
		if db, err = database.OpenSqlx(conf); err != nil {
			return err
		}
		return database.Migrate(db.DB, "up")
	}
	if err := setUp(); err != nil {
		fmt.Fprintf(os.Stderr, "setting up database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	_ = db.Close()
	os.Exit(code)
}

// uname keeps usernames unique across runs on the same database.
func uname(prefix string) string {
	return prefix + "_" + uuid.New().String()[:8]
}

type fixture struct {
	usrRepo    user.Repository
	courseRepo course.Repository
	enrRepo    enrollment.Repository
	cwRepo     coursework.Repository
	attRepo    attendance.Repository

	prof    user.User
	student user.User
	crs     course.Course
}

func setup(t *testing.T) fixture {
	f := fixture{
		usrRepo:    sqlxrepos.NewUserRepository(db),
		courseRepo: sqlxrepos.NewCourseRepository(db),
		enrRepo:    sqlxrepos.NewEnrollmentRepository(db),
		cwRepo:     sqlxrepos.NewCourseworkRepository(db),
		attRepo:    sqlxrepos.NewAttendanceRepository(db),
	}
	f.prof = testutil.CreateUser(t, f.usrRepo, "Prof", uname("prof"), user.RoleInstructor)
	f.student = testutil.CreateUser(t, f.usrRepo, "Stud", uname("stud"), user.RoleStudent)
	f.crs = testutil.CreateCourse(t, f.courseRepo, f.prof, "Algebra")
	return f
}

func TestEnrollmentRepository_EnsureEnrollment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	enr := enrollment.Enrollment{StudentID: f.student.ID, CourseID: f.crs.ID, EnrolledAt: time.Now()}

	first, created, err := f.enrRepo.EnsureEnrollment(ctx, enr)
	if assert.NoError(t, err) {
		assert.True(t, created)
	}
	again, created, err := f.enrRepo.EnsureEnrollment(ctx, enr)
	if assert.NoError(t, err) {
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
	}

	t.Run("unknown course", func(t *testing.T) {
		_, _, err := f.enrRepo.EnsureEnrollment(ctx, enrollment.Enrollment{StudentID: f.student.ID, CourseID: uuid.New().String(), EnrolledAt: time.Now()})
		assert.Equal(t, course.ErrNotFound, err)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, _, err := f.enrRepo.EnsureEnrollment(ctx, enrollment.Enrollment{StudentID: uuid.New().String(), CourseID: f.crs.ID, EnrolledAt: time.Now()})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestEnrollmentRepository_EnsureEnrollment_concurrently(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = make(map[string]struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enr, ok, err := f.enrRepo.EnsureEnrollment(ctx, enrollment.Enrollment{StudentID: f.student.ID, CourseID: f.crs.ID, EnrolledAt: time.Now()})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[enr.ID] = struct{}{}
			if ok {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
	students, err := f.enrRepo.QueryStudents(ctx, f.crs.ID)
	if assert.NoError(t, err) {
		assert.Len(t, students, 1)
	}
}

func TestAttendanceRepository_UpsertAttendance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	att := attendance.Attendance{CourseID: f.crs.ID, StudentID: f.student.ID, Date: "2024-01-10", Status: attendance.StatusPresent}

	first, created, err := f.attRepo.UpsertAttendance(ctx, att)
	if !assert.NoError(t, err) {
		return
	}
	assert.True(t, created)
	assert.Equal(t, f.student.Username, first.StudentName)
	assert.Equal(t, "2024-01-10", first.Date)

	att.Status = attendance.StatusAbsent
	again, created, err := f.attRepo.UpsertAttendance(ctx, att)
	if assert.NoError(t, err) {
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, attendance.StatusAbsent, again.Status)
	}

	records, err := f.attRepo.QueryAttendance(ctx, attendance.QueryFilter{CourseID: f.crs.ID}, access.Scope{InstructorID: f.prof.ID})
	if assert.NoError(t, err) && assert.Len(t, records, 1) {
		assert.Equal(t, attendance.StatusAbsent, records[0].Status)
	}
}

func TestCourseworkRepository_CreateSubmission(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	asg := testutil.CreateAssignment(t, f.cwRepo, f.crs, "Homework")

	sub := coursework.Submission{AssignmentID: asg.ID, StudentID: f.student.ID, Content: "42", SubmittedAt: time.Now()}
	_, err := f.cwRepo.CreateSubmission(ctx, sub)
	assert.NoError(t, err)

	sub.Content = "43"
	_, err = f.cwRepo.CreateSubmission(ctx, sub)
	assert.Equal(t, coursework.ErrAlreadySubmitted, err)

	sub.StudentID = uuid.New().String()
	_, err = f.cwRepo.CreateSubmission(ctx, sub)
	assert.Equal(t, user.ErrNotFound, err)
}
