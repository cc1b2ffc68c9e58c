package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) withName(att attendance.Attendance) attendance.Attendance {
	att.StudentName = repo.db.username(att.StudentID)
	return att
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, att attendance.Attendance) (attendance.Attendance, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.attendance {
		if a.CourseID == att.CourseID && a.StudentID == att.StudentID && a.Date == att.Date {
			a.Status = att.Status
			return repo.withName(*a), false, nil
		}
	}
	att.ID = newID()
	att.StudentName = ""
	repo.db.attendance = append(repo.db.attendance, &att)
	return repo.withName(att), true, nil
}

func (repo *attendanceRepository) GetAttendance(_ context.Context, id string) (attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, att := repo.db.findAttendance(id); att != nil {
		return repo.withName(*att), nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context, filter attendance.QueryFilter, scope access.Scope) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]attendance.Attendance, 0)
	for _, att := range repo.db.attendance {
		if filter.CourseID != "" && att.CourseID != filter.CourseID {
			continue
		}
		if filter.StudentID != "" && att.StudentID != filter.StudentID {
			continue
		}
		if filter.Date != "" && att.Date != filter.Date {
			continue
		}
		var owner string
		if _, crs := repo.db.findCourse(att.CourseID); crs != nil {
			owner = crs.InstructorID
		}
		if scope.Allows(owner, att.StudentID) {
			records = append(records, repo.withName(*att))
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].StudentName < records[j].StudentName
	})
	return records, nil
}

func (repo *attendanceRepository) DeleteAttendance(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	i, att := repo.db.findAttendance(id)
	if att == nil {
		return attendance.ErrNotFound
	}
	repo.db.attendance = append(repo.db.attendance[:i], repo.db.attendance[i+1:]...)
	return nil
}
