// Package dummydb is an in-memory implementation of the repositories.
//
// All tables share one lock so that multi-table operations (cascading deletes,
// uniqueness checks followed by inserts) happen in a single critical section,
// the way they would inside one SQL transaction.
package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/user"
)

// Tables are slices kept in insertion order.
type DB struct {
	sync.RWMutex

	users       []*user.User
	courses     []*course.Course
	lessons     []*course.Lesson
	enrollments []*enrollment.Enrollment
	assignments []*coursework.Assignment
	submissions []*coursework.Submission
	attendance  []*attendance.Attendance
}

func Open() *DB {
	return &DB{}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.users = nil
	db.courses = nil
	db.lessons = nil
	db.enrollments = nil
	db.assignments = nil
	db.submissions = nil
	db.attendance = nil
}

func newID() string {
	return uuid.New().String()
}

func (db *DB) findUser(id string) (int, *user.User) {
	for i, u := range db.users {
		if u.ID == id {
			return i, u
		}
	}
	return -1, nil
}

func (db *DB) findCourse(id string) (int, *course.Course) {
	for i, c := range db.courses {
		if c.ID == id {
			return i, c
		}
	}
	return -1, nil
}

func (db *DB) findLesson(id string) (int, *course.Lesson) {
	for i, l := range db.lessons {
		if l.ID == id {
			return i, l
		}
	}
	return -1, nil
}

func (db *DB) findAssignment(id string) (int, *coursework.Assignment) {
	for i, a := range db.assignments {
		if a.ID == id {
			return i, a
		}
	}
	return -1, nil
}

func (db *DB) findSubmission(id string) (int, *coursework.Submission) {
	for i, s := range db.submissions {
		if s.ID == id {
			return i, s
		}
	}
	return -1, nil
}

func (db *DB) findAttendance(id string) (int, *attendance.Attendance) {
	for i, a := range db.attendance {
		if a.ID == id {
			return i, a
		}
	}
	return -1, nil
}

// username returns the username of a user, or "" if unknown.
func (db *DB) username(id string) string {
	if _, u := db.findUser(id); u != nil {
		return u.Username
	}
	return ""
}
