package dummydb

import (
	"context"

	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/user"
)

type courseworkRepository struct {
	db *DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *DB) coursework.Repository {
	return &courseworkRepository{db: db}
}

func (repo *courseworkRepository) CreateAssignment(_ context.Context, asg coursework.Assignment) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	asg.ID = newID()
	repo.db.assignments = append(repo.db.assignments, &asg)
	return asg, nil
}

func (repo *courseworkRepository) GetAssignment(_ context.Context, id string) (coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, asg := repo.db.findAssignment(id); asg != nil {
		return *asg, nil
	}
	return coursework.Assignment{}, coursework.ErrAssignmentNotFound
}

func (repo *courseworkRepository) QueryAssignments(_ context.Context, filter coursework.AssignmentFilter) ([]coursework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assignments := make([]coursework.Assignment, 0)
	for _, asg := range repo.db.assignments {
		if filter.CourseID == "" || asg.CourseID == filter.CourseID {
			assignments = append(assignments, *asg)
		}
	}
	return assignments, nil
}

func (repo *courseworkRepository) UpdateAssignment(_ context.Context, asg coursework.Assignment) (coursework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	_, orig := repo.db.findAssignment(asg.ID)
	if orig == nil {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	orig.Title = asg.Title
	orig.Description = asg.Description
	orig.DueDate = asg.DueDate
	return *orig, nil
}

func (repo *courseworkRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	i, asg := repo.db.findAssignment(id)
	if asg == nil {
		return coursework.ErrAssignmentNotFound
	}
	submissions := repo.db.submissions[:0]
	for _, s := range repo.db.submissions {
		if s.AssignmentID != id {
			submissions = append(submissions, s)
		}
	}
	repo.db.submissions = submissions
	repo.db.assignments = append(repo.db.assignments[:i], repo.db.assignments[i+1:]...)
	return nil
}

// Submissions

func (repo *courseworkRepository) CreateSubmission(_ context.Context, sub coursework.Submission) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.submissions {
		if s.AssignmentID == sub.AssignmentID && s.StudentID == sub.StudentID {
			return coursework.Submission{}, coursework.ErrAlreadySubmitted
		}
	}
	if _, asg := repo.db.findAssignment(sub.AssignmentID); asg == nil {
		return coursework.Submission{}, coursework.ErrAssignmentNotFound
	}
	if _, usr := repo.db.findUser(sub.StudentID); usr == nil {
		return coursework.Submission{}, user.ErrNotFound
	}
	sub.ID = newID()
	repo.db.submissions = append(repo.db.submissions, &sub)
	return sub, nil
}

func (repo *courseworkRepository) GetSubmission(_ context.Context, id string) (coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, sub := repo.db.findSubmission(id); sub != nil {
		return *sub, nil
	}
	return coursework.Submission{}, coursework.ErrSubmissionNotFound
}

func (repo *courseworkRepository) QuerySubmissions(_ context.Context, filter coursework.SubmissionFilter, scope access.Scope) ([]coursework.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	submissions := make([]coursework.Submission, 0)
	for _, sub := range repo.db.submissions {
		if filter.AssignmentID != "" && sub.AssignmentID != filter.AssignmentID {
			continue
		}
		var owner string
		if _, asg := repo.db.findAssignment(sub.AssignmentID); asg != nil {
			if _, crs := repo.db.findCourse(asg.CourseID); crs != nil {
				owner = crs.InstructorID
			}
		}
		if scope.Allows(owner, sub.StudentID) {
			submissions = append(submissions, *sub)
		}
	}
	return submissions, nil
}

func (repo *courseworkRepository) UpdateSubmissionGrade(_ context.Context, sub coursework.Submission) (coursework.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	_, orig := repo.db.findSubmission(sub.ID)
	if orig == nil {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	orig.Grade = sub.Grade
	orig.Feedback = sub.Feedback
	return *orig, nil
}
