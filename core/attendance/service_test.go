package attendance_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
	dummydb "github.com/trezcool/academia/storage/database/dummy"
	"github.com/trezcool/academia/testutil"
)

type fixture struct {
	svc  *attendance.Service
	repo attendance.Repository

	prof  user.User
	other user.User
	s1    user.User
	s2    user.User
	crs   course.Course
}

func setup(t *testing.T) fixture {
	validate, _ := testutil.NewValidator()

	db := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	courseRepo := dummydb.NewCourseRepository(db)
	f := fixture{repo: dummydb.NewAttendanceRepository(db)}
	f.svc = attendance.NewService(f.repo, courseRepo, usrRepo, validate)

	f.prof = testutil.CreateUser(t, usrRepo, "Prof", "prof", user.RoleInstructor)
	f.other = testutil.CreateUser(t, usrRepo, "Other", "other", user.RoleInstructor)
	f.s1 = testutil.CreateUser(t, usrRepo, "Stud 1", "stud1", user.RoleStudent)
	f.s2 = testutil.CreateUser(t, usrRepo, "Stud 2", "stud2", user.RoleStudent)
	f.crs = testutil.CreateCourse(t, courseRepo, f.prof, "Algebra")
	return f
}

func identity(usr user.User) *access.Identity {
	return &access.Identity{UserID: usr.ID, Role: usr.Role}
}

func (f fixture) records(t *testing.T, date string) []attendance.Attendance {
	records, err := f.svc.Query(context.Background(), identity(f.prof), attendance.QueryFilter{CourseID: f.crs.ID, Date: date})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	return records
}

func TestService_MarkBulk(t *testing.T) {
	ctx := context.Background()
	bulk := func(f fixture, date string, recs ...attendance.BulkRecord) attendance.BulkAttendance {
		return attendance.BulkAttendance{CourseID: f.crs.ID, Date: date, Records: recs}
	}

	t.Run("non owner writes nothing", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.MarkBulk(ctx, identity(f.other), bulk(f, "2024-01-10",
			attendance.BulkRecord{StudentID: f.s1.ID, Status: attendance.StatusPresent},
			attendance.BulkRecord{StudentID: f.s2.ID, Status: attendance.StatusAbsent},
		))
		assert.Equal(t, core.ErrForbidden, err)
		assert.Empty(t, f.records(t, ""))
	})

	t.Run("duplicate student keeps the last status", func(t *testing.T) {
		f := setup(t)
		res, err := f.svc.MarkBulk(ctx, identity(f.prof), bulk(f, "2024-01-10",
			attendance.BulkRecord{StudentID: f.s1.ID, Status: attendance.StatusPresent},
			attendance.BulkRecord{StudentID: f.s1.ID, Status: attendance.StatusAbsent},
		))
		if assert.NoError(t, err) {
			assert.Equal(t, 2, res.Count)
		}
		records := f.records(t, "2024-01-10")
		if assert.Len(t, records, 1) {
			assert.Equal(t, attendance.StatusAbsent, records[0].Status)
		}
	})

	t.Run("re-marking a day updates in place", func(t *testing.T) {
		f := setup(t)
		res, err := f.svc.MarkBulk(ctx, identity(f.prof), bulk(f, "2024-01-10",
			attendance.BulkRecord{StudentID: f.s1.ID, Status: attendance.StatusPresent},
		))
		if assert.NoError(t, err) {
			assert.Equal(t, 1, res.Count)
		}
		res, err = f.svc.MarkBulk(ctx, identity(f.prof), bulk(f, "2024-01-10",
			attendance.BulkRecord{StudentID: f.s1.ID, Status: attendance.StatusAbsent},
		))
		if assert.NoError(t, err) {
			assert.Equal(t, 1, res.Count)
		}
		records := f.records(t, "2024-01-10")
		if assert.Len(t, records, 1) {
			assert.Equal(t, attendance.StatusAbsent, records[0].Status)
			assert.Equal(t, "stud1", records[0].StudentName)
		}
	})

	t.Run("invalid record stops the batch", func(t *testing.T) {
		f := setup(t)
		res, err := f.svc.MarkBulk(ctx, identity(f.prof), bulk(f, "2024-01-10",
			attendance.BulkRecord{StudentID: f.s1.ID, Status: attendance.StatusPresent},
			attendance.BulkRecord{StudentID: f.other.ID, Status: attendance.StatusPresent},
			attendance.BulkRecord{StudentID: f.s2.ID, Status: attendance.StatusPresent},
		))
		assert.Equal(t, 1, res.Count)
		bulkErr, ok := err.(*attendance.BulkError)
		if assert.True(t, ok, "%v", err) {
			assert.Equal(t, 1, bulkErr.Applied)
			assert.Equal(t, 1, bulkErr.Index)
			_, isValidation := errors.Cause(bulkErr.Err).(*core.ValidationError)
			assert.True(t, isValidation)
		}
		assert.Len(t, f.records(t, "2024-01-10"), 1)
	})

	t.Run("invalid payload", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.MarkBulk(ctx, identity(f.prof), bulk(f, "10-01-2024",
			attendance.BulkRecord{StudentID: f.s1.ID, Status: attendance.StatusPresent},
		))
		assert.Error(t, err)
		_, err = f.svc.MarkBulk(ctx, identity(f.prof), bulk(f, "2024-01-10"))
		assert.Error(t, err)
		assert.Empty(t, f.records(t, ""))
	})
}

func TestService_Mark(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	na := attendance.NewAttendance{CourseID: f.crs.ID, StudentID: f.s1.ID, Date: "2024-01-10"}

	_, _, err := f.svc.Mark(ctx, nil, na)
	assert.Equal(t, core.ErrUnauthenticated, err)
	_, _, err = f.svc.Mark(ctx, identity(f.s1), na)
	assert.Equal(t, core.ErrForbidden, err)

	att, created, err := f.svc.Mark(ctx, identity(f.prof), na)
	if assert.NoError(t, err) {
		assert.True(t, created)
		assert.Equal(t, attendance.StatusPresent, att.Status)
	}

	na.Status = attendance.StatusAbsent
	again, created, err := f.svc.Mark(ctx, identity(f.prof), na)
	if assert.NoError(t, err) {
		assert.False(t, created)
		assert.Equal(t, att.ID, again.ID)
		assert.Equal(t, attendance.StatusAbsent, again.Status)
	}
}

func TestService_Get(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	att, _, err := f.svc.Mark(ctx, identity(f.prof), attendance.NewAttendance{CourseID: f.crs.ID, StudentID: f.s1.ID, Date: "2024-01-10"})
	if err != nil {
		t.Fatalf("Mark() failed: %v", err)
	}

	tests := []struct {
		name     string
		identity *access.Identity
		wantErr  error
	}{
		{name: "anonymous", wantErr: core.ErrUnauthenticated},
		{name: "owner", identity: identity(f.prof)},
		{name: "student", identity: identity(f.s1)},
		{name: "other student", identity: identity(f.s2), wantErr: attendance.ErrNotFound},
		{name: "other instructor", identity: identity(f.other), wantErr: attendance.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Get(ctx, tt.identity, att.ID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, att, got)
			}
		})
	}

	_, err = f.svc.UpdateStatus(ctx, identity(f.s1), att.ID, attendance.UpdateAttendance{Status: attendance.StatusAbsent})
	assert.Equal(t, core.ErrForbidden, err)
	assert.NoError(t, f.svc.Delete(ctx, identity(f.prof), att.ID))
	_, err = f.svc.Get(ctx, identity(f.prof), att.ID)
	assert.Equal(t, attendance.ErrNotFound, err)
}
