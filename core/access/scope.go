package access

import "github.com/trezcool/academia/core"

// Scope narrows record queries to what an identity may see.
// Exactly one field is set: instructors see the records of the courses they teach,
// students see their own records.
type Scope struct {
	InstructorID string
	StudentID    string
}

func ScopeFor(identity *Identity) (Scope, error) {
	switch {
	case identity == nil:
		return Scope{}, core.ErrUnauthenticated
	case identity.IsInstructor():
		return Scope{InstructorID: identity.UserID}, nil
	case identity.IsStudent():
		return Scope{StudentID: identity.UserID}, nil
	}
	return Scope{}, core.ErrForbidden
}

// Allows reports whether a record owned by courseInstructorID and belonging to studentID
// is visible in the scope.
func (s Scope) Allows(courseInstructorID, studentID string) bool {
	if s.InstructorID != "" {
		return s.InstructorID == courseInstructorID
	}
	if s.StudentID != "" {
		return s.StudentID == studentID
	}
	return false
}
