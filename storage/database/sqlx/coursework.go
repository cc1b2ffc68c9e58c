package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/user"
)

const (
	assignmentColumns = "id, course_id, title, description, due_date, created_at"
	submissionColumns = "id, assignment_id, student_id, content, grade, feedback, submitted_at"
)

type assignmentRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     time.Time `db:"due_date"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r assignmentRow) toAssignment() coursework.Assignment {
	return coursework.Assignment{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type submissionRow struct {
	ID           string       `db:"id"`
	AssignmentID string       `db:"assignment_id"`
	StudentID    string       `db:"student_id"`
	Content      string       `db:"content"`
	Grade        null.Float64 `db:"grade"`
	Feedback     null.String  `db:"feedback"`
	SubmittedAt  time.Time    `db:"submitted_at"`
}

func (r submissionRow) toSubmission() coursework.Submission {
	return coursework.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		Content:      r.Content,
		Grade:        r.Grade,
		Feedback:     r.Feedback,
		SubmittedAt:  r.SubmittedAt.UTC(),
	}
}

type courseworkRepository struct {
	db *sqlx.DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *sqlx.DB) coursework.Repository {
	return &courseworkRepository{db: db}
}

func (repo *courseworkRepository) CreateAssignment(ctx context.Context, asg coursework.Assignment) (coursework.Assignment, error) {
	q := `INSERT INTO assignments (` + assignmentColumns + `) VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + assignmentColumns

	var row assignmentRow
	err := sqlx.GetContext(ctx, repo.db, &row, q,
		newID(), asg.CourseID, asg.Title, asg.Description, asg.DueDate.UTC(), asg.CreatedAt.UTC())
	if err != nil {
		return coursework.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return row.toAssignment(), nil
}

func (repo *courseworkRepository) GetAssignment(ctx context.Context, id string) (coursework.Assignment, error) {
	if !validID(id) {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	var row assignmentRow
	if err := sqlx.GetContext(ctx, repo.db, &row, "SELECT "+assignmentColumns+" FROM assignments WHERE id = $1", id); err != nil {
		return coursework.Assignment{}, trapNoRowsErr(err, coursework.ErrAssignmentNotFound, "finding assignment")
	}
	return row.toAssignment(), nil
}

func (repo *courseworkRepository) QueryAssignments(ctx context.Context, filter coursework.AssignmentFilter) ([]coursework.Assignment, error) {
	var where whereClause
	if filter.CourseID != "" {
		if !validID(filter.CourseID) {
			return []coursework.Assignment{}, nil
		}
		where.add("course_id = ?", filter.CourseID)
	}
	q := "SELECT " + assignmentColumns + " FROM assignments" + where.String() + " ORDER BY created_at ASC"

	var rows []assignmentRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]coursework.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.toAssignment())
	}
	return assignments, nil
}

func (repo *courseworkRepository) UpdateAssignment(ctx context.Context, asg coursework.Assignment) (coursework.Assignment, error) {
	if !validID(asg.ID) {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	q := `UPDATE assignments SET title = $2, description = $3, due_date = $4 WHERE id = $1 RETURNING ` + assignmentColumns

	var row assignmentRow
	if err := sqlx.GetContext(ctx, repo.db, &row, q, asg.ID, asg.Title, asg.Description, asg.DueDate.UTC()); err != nil {
		return coursework.Assignment{}, trapNoRowsErr(err, coursework.ErrAssignmentNotFound, "updating assignment")
	}
	return row.toAssignment(), nil
}

func (repo *courseworkRepository) DeleteAssignment(ctx context.Context, id string) error {
	if !validID(id) {
		return coursework.ErrAssignmentNotFound
	}
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM submissions WHERE assignment_id = $1", id); err != nil {
			return errors.Wrap(err, "deleting assignment submissions")
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE id = $1", id)
		if err != nil {
			return errors.Wrap(err, "deleting assignment")
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "deleting assignment")
		} else if n == 0 {
			return coursework.ErrAssignmentNotFound
		}
		return nil
	})
}

// Submissions

// CreateSubmission relies on the (assignment_id, student_id) unique constraint:
// on conflict nothing is inserted nor returned.
func (repo *courseworkRepository) CreateSubmission(ctx context.Context, sub coursework.Submission) (coursework.Submission, error) {
	q := `INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, NULL, NULL, $5)
		ON CONFLICT (assignment_id, student_id) DO NOTHING
		RETURNING ` + submissionColumns

	var row submissionRow
	err := sqlx.GetContext(ctx, repo.db, &row, q, newID(), sub.AssignmentID, sub.StudentID, sub.Content, sub.SubmittedAt.UTC())
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return coursework.Submission{}, coursework.ErrAlreadySubmitted
		}
		if fkey, ok := violatedForeignKey(err); ok {
			if fkey == "submissions_student_id_fkey" {
				return coursework.Submission{}, user.ErrNotFound
			}
			return coursework.Submission{}, coursework.ErrAssignmentNotFound
		}
		return coursework.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return row.toSubmission(), nil
}

func (repo *courseworkRepository) GetSubmission(ctx context.Context, id string) (coursework.Submission, error) {
	if !validID(id) {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	var row submissionRow
	if err := sqlx.GetContext(ctx, repo.db, &row, "SELECT "+submissionColumns+" FROM submissions WHERE id = $1", id); err != nil {
		return coursework.Submission{}, trapNoRowsErr(err, coursework.ErrSubmissionNotFound, "finding submission")
	}
	return row.toSubmission(), nil
}

func (repo *courseworkRepository) QuerySubmissions(ctx context.Context, filter coursework.SubmissionFilter, scope access.Scope) ([]coursework.Submission, error) {
	var where whereClause
	switch {
	case scope.InstructorID != "" && validID(scope.InstructorID):
		where.add("c.instructor_id = ?", scope.InstructorID)
	case scope.StudentID != "" && validID(scope.StudentID):
		where.add("s.student_id = ?", scope.StudentID)
	default:
		return []coursework.Submission{}, nil
	}
	if filter.AssignmentID != "" {
		if !validID(filter.AssignmentID) {
			return []coursework.Submission{}, nil
		}
		where.add("s.assignment_id = ?", filter.AssignmentID)
	}
	q := `SELECT s.id, s.assignment_id, s.student_id, s.content, s.grade, s.feedback, s.submitted_at
		FROM submissions s
		JOIN assignments a ON a.id = s.assignment_id
		JOIN courses c ON c.id = a.course_id` + where.String() + " ORDER BY s.submitted_at ASC"

	var rows []submissionRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	submissions := make([]coursework.Submission, 0, len(rows))
	for _, r := range rows {
		submissions = append(submissions, r.toSubmission())
	}
	return submissions, nil
}

func (repo *courseworkRepository) UpdateSubmissionGrade(ctx context.Context, sub coursework.Submission) (coursework.Submission, error) {
	if !validID(sub.ID) {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	q := `UPDATE submissions SET grade = $2, feedback = $3 WHERE id = $1 RETURNING ` + submissionColumns

	var row submissionRow
	if err := sqlx.GetContext(ctx, repo.db, &row, q, sub.ID, sub.Grade, sub.Feedback); err != nil {
		return coursework.Submission{}, trapNoRowsErr(err, coursework.ErrSubmissionNotFound, "grading submission")
	}
	return row.toSubmission(), nil
}
