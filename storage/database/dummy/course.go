package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = newID()
	repo.db.courses = append(repo.db.courses, &crs)
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, crs := repo.db.findCourse(id); crs != nil {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		if filter.InstructorID != "" && crs.InstructorID != filter.InstructorID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(crs.Title), search) &&
			!strings.Contains(strings.ToLower(crs.Description), search) {
			continue
		}
		courses = append(courses, *crs)
	}

	if len(ordering) > 0 {
		sort.SliceStable(courses, func(i, j int) bool {
			for _, ord := range ordering {
				var cmp int
				switch ord.Field {
				case "title":
					cmp = strings.Compare(courses[i].Title, courses[j].Title)
				case "created_at":
					switch {
					case courses[i].CreatedAt.Before(courses[j].CreatedAt):
						cmp = -1
					case courses[i].CreatedAt.After(courses[j].CreatedAt):
						cmp = 1
					}
				}
				if cmp != 0 {
					return (cmp < 0) == ord.Ascending
				}
			}
			return false
		})
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	_, orig := repo.db.findCourse(crs.ID)
	if orig == nil {
		return course.Course{}, course.ErrNotFound
	}
	orig.Title = crs.Title
	orig.Description = crs.Description
	return *orig, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	i, crs := repo.db.findCourse(id)
	if crs == nil {
		return course.ErrNotFound
	}

	lessons := repo.db.lessons[:0]
	for _, l := range repo.db.lessons {
		if l.CourseID != id {
			lessons = append(lessons, l)
		}
	}
	repo.db.lessons = lessons

	assignmentIDs := make(map[string]bool)
	assignments := repo.db.assignments[:0]
	for _, a := range repo.db.assignments {
		if a.CourseID == id {
			assignmentIDs[a.ID] = true
		} else {
			assignments = append(assignments, a)
		}
	}
	repo.db.assignments = assignments

	submissions := repo.db.submissions[:0]
	for _, s := range repo.db.submissions {
		if !assignmentIDs[s.AssignmentID] {
			submissions = append(submissions, s)
		}
	}
	repo.db.submissions = submissions

	enrollments := repo.db.enrollments[:0]
	for _, e := range repo.db.enrollments {
		if e.CourseID != id {
			enrollments = append(enrollments, e)
		}
	}
	repo.db.enrollments = enrollments

	records := repo.db.attendance[:0]
	for _, a := range repo.db.attendance {
		if a.CourseID != id {
			records = append(records, a)
		}
	}
	repo.db.attendance = records

	repo.db.courses = append(repo.db.courses[:i], repo.db.courses[i+1:]...)
	return nil
}

// Lessons

func (repo *courseRepository) CreateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, crs := repo.db.findCourse(lsn.CourseID); crs == nil {
		return course.Lesson{}, course.ErrNotFound
	}
	lsn.ID = newID()
	repo.db.lessons = append(repo.db.lessons, &lsn)
	return lsn, nil
}

func (repo *courseRepository) GetLesson(_ context.Context, id string) (course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, lsn := repo.db.findLesson(id); lsn != nil {
		return *lsn, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) QueryLessons(_ context.Context, filter course.LessonFilter) ([]course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]course.Lesson, 0)
	for _, lsn := range repo.db.lessons {
		if filter.CourseID == "" || lsn.CourseID == filter.CourseID {
			lessons = append(lessons, *lsn)
		}
	}
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	return lessons, nil
}

func (repo *courseRepository) UpdateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	_, orig := repo.db.findLesson(lsn.ID)
	if orig == nil {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	orig.Title = lsn.Title
	orig.Content = lsn.Content
	orig.Order = lsn.Order
	return *orig, nil
}

func (repo *courseRepository) DeleteLesson(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	i, lsn := repo.db.findLesson(id)
	if lsn == nil {
		return course.ErrLessonNotFound
	}
	repo.db.lessons = append(repo.db.lessons[:i], repo.db.lessons[i+1:]...)
	return nil
}

