package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

const (
	courseColumns = "id, title, description, instructor_id, created_at"
	lessonColumns = `id, course_id, title, content, "order", created_at`
)

type courseRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	InstructorID string    `db:"instructor_id"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		InstructorID: r.InstructorID,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func toCourses(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses
}

type lessonRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	Order     int       `db:"order"`
	CreatedAt time.Time `db:"created_at"`
}

func (r lessonRow) toLesson() course.Lesson {
	return course.Lesson{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Title:     r.Title,
		Content:   r.Content,
		Order:     r.Order,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `INSERT INTO courses (` + courseColumns + `) VALUES ($1, $2, $3, $4, $5) RETURNING ` + courseColumns

	var row courseRow
	err := sqlx.GetContext(ctx, repo.db, &row, q, newID(), crs.Title, crs.Description, crs.InstructorID, crs.CreatedAt.UTC())
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := sqlx.GetContext(ctx, repo.db, &row, "SELECT "+courseColumns+" FROM courses WHERE id = $1", id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var where whereClause
	if filter.InstructorID != "" {
		if !validID(filter.InstructorID) {
			return []course.Course{}, nil
		}
		where.add("instructor_id = ?", filter.InstructorID)
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where.add("(title ILIKE ? OR description ILIKE ?)", val, val)
	}
	q := "SELECT " + courseColumns + " FROM courses" + where.String() + orderBy(ordering, "created_at ASC")

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return toCourses(rows), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if !validID(crs.ID) {
		return course.Course{}, course.ErrNotFound
	}
	q := `UPDATE courses SET title = $2, description = $3 WHERE id = $1 RETURNING ` + courseColumns

	var row courseRow
	if err := sqlx.GetContext(ctx, repo.db, &row, q, crs.ID, crs.Title, crs.Description); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "updating course")
	}
	return row.toCourse(), nil
}

// courseCascade deletes the records referencing a course, children first.
var courseCascade = []string{
	"DELETE FROM lessons WHERE course_id = $1",
	"DELETE FROM submissions WHERE assignment_id IN (SELECT id FROM assignments WHERE course_id = $1)",
	"DELETE FROM assignments WHERE course_id = $1",
	"DELETE FROM enrollments WHERE course_id = $1",
	"DELETE FROM attendance WHERE course_id = $1",
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrNotFound
	}
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, q := range courseCascade {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return errors.Wrap(err, "deleting course dependents")
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id)
		if err != nil {
			return errors.Wrap(err, "deleting course")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "deleting course")
		} else if n == 0 {
			return course.ErrNotFound
		}
		return nil
	})
}

// Lessons

func (repo *courseRepository) CreateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	if !validID(lsn.CourseID) {
		return course.Lesson{}, course.ErrNotFound
	}
	q := `INSERT INTO lessons (` + lessonColumns + `) VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + lessonColumns

	var row lessonRow
	err := sqlx.GetContext(ctx, repo.db, &row, q, newID(), lsn.CourseID, lsn.Title, lsn.Content, lsn.Order, lsn.CreatedAt.UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return course.Lesson{}, course.ErrNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) GetLesson(ctx context.Context, id string) (course.Lesson, error) {
	if !validID(id) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	var row lessonRow
	if err := sqlx.GetContext(ctx, repo.db, &row, "SELECT "+lessonColumns+" FROM lessons WHERE id = $1", id); err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "finding lesson")
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) QueryLessons(ctx context.Context, filter course.LessonFilter) ([]course.Lesson, error) {
	var where whereClause
	if filter.CourseID != "" {
		if !validID(filter.CourseID) {
			return []course.Lesson{}, nil
		}
		where.add("course_id = ?", filter.CourseID)
	}
	q := "SELECT " + lessonColumns + " FROM lessons" + where.String() + ` ORDER BY "order" ASC, created_at ASC`

	var rows []lessonRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.toLesson())
	}
	return lessons, nil
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	if !validID(lsn.ID) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	q := `UPDATE lessons SET title = $2, content = $3, "order" = $4 WHERE id = $1 RETURNING ` + lessonColumns

	var row lessonRow
	if err := sqlx.GetContext(ctx, repo.db, &row, q, lsn.ID, lsn.Title, lsn.Content, lsn.Order); err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "updating lesson")
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrLessonNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM lessons WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting lesson")
	} else if n == 0 {
		return course.ErrLessonNotFound
	}
	return nil
}
