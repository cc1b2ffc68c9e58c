package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/user"
)

type enrollmentRow struct {
	ID         string    `db:"id"`
	StudentID  string    `db:"student_id"`
	CourseID   string    `db:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at"`
	Created    bool      `db:"created"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:         r.ID,
		StudentID:  r.StudentID,
		CourseID:   r.CourseID,
		EnrolledAt: r.EnrolledAt.UTC(),
	}
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

// EnsureEnrollment relies on the (student_id, course_id) unique constraint.
// The no-op update makes RETURNING yield the existing row on conflict; xmax is 0 only for fresh inserts.
func (repo *enrollmentRepository) EnsureEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, bool, error) {
	if !validID(enr.CourseID) {
		return enrollment.Enrollment{}, false, course.ErrNotFound
	}
	if !validID(enr.StudentID) {
		return enrollment.Enrollment{}, false, user.ErrNotFound
	}
	q := `INSERT INTO enrollments (id, student_id, course_id, enrolled_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, course_id) DO UPDATE SET student_id = EXCLUDED.student_id
		RETURNING id, student_id, course_id, enrolled_at, (xmax = 0) AS created`

	var row enrollmentRow
	if err := sqlx.GetContext(ctx, repo.db, &row, q, newID(), enr.StudentID, enr.CourseID, enr.EnrolledAt.UTC()); err != nil {
		if fkey, ok := violatedForeignKey(err); ok {
			if fkey == "enrollments_student_id_fkey" {
				return enrollment.Enrollment{}, false, user.ErrNotFound
			}
			return enrollment.Enrollment{}, false, course.ErrNotFound
		}
		return enrollment.Enrollment{}, false, errors.Wrap(err, "upserting enrollment")
	}
	return row.toEnrollment(), row.Created, nil
}

func (repo *enrollmentRepository) QueryEnrolledCourses(ctx context.Context, studentID string) ([]course.Course, error) {
	if !validID(studentID) {
		return []course.Course{}, nil
	}
	q := `SELECT c.id, c.title, c.description, c.instructor_id, c.created_at
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = $1
		ORDER BY e.enrolled_at ASC`

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled courses")
	}
	return toCourses(rows), nil
}

func (repo *enrollmentRepository) QueryStudents(ctx context.Context, courseID string) ([]user.User, error) {
	if !validID(courseID) {
		return []user.User{}, nil
	}
	q := `SELECT u.id, u.name, u.username, u.email, u.role, u.is_active, u.password_hash, u.created_at, u.updated_at
		FROM users u
		JOIN enrollments e ON e.student_id = u.id
		WHERE e.course_id = $1
		ORDER BY e.enrolled_at ASC`

	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying course students")
	}
	return toUsers(rows), nil
}
