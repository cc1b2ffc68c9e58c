// Package testutil holds the fixtures shared by the test suites.
package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/user"
	logsvc "github.com/trezcool/academia/services/logger"
)

const DefaultPassword = "Acad3mia-Passw0rd!"

func NewConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		AppName:          "Academia",
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Academia", Address: "noreply@academia.test"},
		Server: core.ServerConfig{
			Host:               ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
	}
}

// NewLogger returns a logger that reports nowhere.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewValidator returns a validator and its translator with every custom rule registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, name, uname string, role user.Role, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     uname + "@academia.test",
		Role:      role,
		IsActive:  true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(DefaultPassword); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, instructor user.User, title string) course.Course {
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:        title,
		Description:  title + " description",
		InstructorID: instructor.ID,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateLesson(t *testing.T, repo course.Repository, crs course.Course, title string, order int) course.Lesson {
	lsn, err := repo.CreateLesson(context.Background(), course.Lesson{
		CourseID:  crs.ID,
		Title:     title,
		Content:   title + " content",
		Order:     order,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lsn
}

func CreateAssignment(t *testing.T, repo coursework.Repository, crs course.Course, title string) coursework.Assignment {
	now := time.Now().UTC()
	asg, err := repo.CreateAssignment(context.Background(), coursework.Assignment{
		CourseID:  crs.ID,
		Title:     title,
		DueDate:   now.Add(7 * 24 * time.Hour).Truncate(time.Second),
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}

func CreateSubmission(t *testing.T, repo coursework.Repository, asg coursework.Assignment, student user.User, content string) coursework.Submission {
	sub, err := repo.CreateSubmission(context.Background(), coursework.Submission{
		AssignmentID: asg.ID,
		StudentID:    student.ID,
		Content:      content,
		SubmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}

func Enroll(t *testing.T, repo enrollment.Repository, student user.User, crs course.Course) enrollment.Enrollment {
	enr, _, err := repo.EnsureEnrollment(context.Background(), enrollment.Enrollment{
		StudentID:  student.ID,
		CourseID:   crs.ID,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}
