package dummydb

import (
	"context"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/user"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) EnsureEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID {
			return *e, false, nil
		}
	}
	if _, crs := repo.db.findCourse(enr.CourseID); crs == nil {
		return enrollment.Enrollment{}, false, course.ErrNotFound
	}
	if _, usr := repo.db.findUser(enr.StudentID); usr == nil {
		return enrollment.Enrollment{}, false, user.ErrNotFound
	}
	enr.ID = newID()
	repo.db.enrollments = append(repo.db.enrollments, &enr)
	return enr, true, nil
}

func (repo *enrollmentRepository) QueryEnrolledCourses(_ context.Context, studentID string) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, e := range repo.db.enrollments {
		if e.StudentID != studentID {
			continue
		}
		if _, crs := repo.db.findCourse(e.CourseID); crs != nil {
			courses = append(courses, *crs)
		}
	}
	return courses, nil
}

func (repo *enrollmentRepository) QueryStudents(_ context.Context, courseID string) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]user.User, 0)
	for _, e := range repo.db.enrollments {
		if e.CourseID != courseID {
			continue
		}
		if _, usr := repo.db.findUser(e.StudentID); usr != nil {
			students = append(students, *usr)
		}
	}
	return students, nil
}
