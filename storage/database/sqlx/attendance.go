package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/attendance"
)

// attendanceSelect projects an attendance row `a` joined with its student `u`.
const attendanceSelect = `SELECT a.id, a.course_id, a.student_id, u.username AS student_name,
	to_char(a.date, 'YYYY-MM-DD') AS date, a.status
	FROM attendance a
	JOIN users u ON u.id = a.student_id`

type attendanceRow struct {
	ID          string `db:"id"`
	CourseID    string `db:"course_id"`
	StudentID   string `db:"student_id"`
	StudentName string `db:"student_name"`
	Date        string `db:"date"`
	Status      string `db:"status"`
	Created     bool   `db:"created"`
}

func (r attendanceRow) toAttendance() attendance.Attendance {
	return attendance.Attendance{
		ID:          r.ID,
		CourseID:    r.CourseID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		Date:        r.Date,
		Status:      attendance.Status(r.Status),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// UpsertAttendance relies on the (course_id, student_id, date) unique constraint.
func (repo *attendanceRepository) UpsertAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, bool, error) {
	q := `WITH upserted AS (
			INSERT INTO attendance (id, course_id, student_id, date, status)
			VALUES ($1, $2, $3, $4::date, $5)
			ON CONFLICT (course_id, student_id, date) DO UPDATE SET status = EXCLUDED.status
			RETURNING id, course_id, student_id, date, status, (xmax = 0) AS created
		)
		SELECT a.id, a.course_id, a.student_id, u.username AS student_name,
			to_char(a.date, 'YYYY-MM-DD') AS date, a.status, a.created
		FROM upserted a
		JOIN users u ON u.id = a.student_id`

	var row attendanceRow
	err := sqlx.GetContext(ctx, repo.db, &row, q, newID(), att.CourseID, att.StudentID, att.Date, string(att.Status))
	if err != nil {
		return attendance.Attendance{}, false, errors.Wrap(err, "upserting attendance")
	}
	return row.toAttendance(), row.Created, nil
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, id string) (attendance.Attendance, error) {
	if !validID(id) {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	var row attendanceRow
	if err := sqlx.GetContext(ctx, repo.db, &row, attendanceSelect+" WHERE a.id = $1", id); err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance")
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.QueryFilter, scope access.Scope) ([]attendance.Attendance, error) {
	var where whereClause
	switch {
	case scope.InstructorID != "" && validID(scope.InstructorID):
		where.add("c.instructor_id = ?", scope.InstructorID)
	case scope.StudentID != "" && validID(scope.StudentID):
		where.add("a.student_id = ?", scope.StudentID)
	default:
		return []attendance.Attendance{}, nil
	}
	for _, fltr := range []struct {
		cond, val string
	}{
		{"a.course_id = ?", filter.CourseID},
		{"a.student_id = ?", filter.StudentID},
	} {
		if fltr.val == "" {
			continue
		}
		if !validID(fltr.val) {
			return []attendance.Attendance{}, nil
		}
		where.add(fltr.cond, fltr.val)
	}
	if filter.Date != "" {
		where.add("a.date = ?::date", filter.Date)
	}
	q := attendanceSelect + " JOIN courses c ON c.id = a.course_id" + where.String() + " ORDER BY a.date ASC, u.username ASC"

	var rows []attendanceRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]attendance.Attendance, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toAttendance())
	}
	return records, nil
}

func (repo *attendanceRepository) DeleteAttendance(ctx context.Context, id string) error {
	if !validID(id) {
		return attendance.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting attendance")
	} else if n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}
