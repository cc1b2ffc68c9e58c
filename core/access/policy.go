// Package access holds the single authorization decision point of the app.
//
// Every operation names an Action on a Resource; Authorize decides from the caller's
// Identity and the ownership of the target course. Record visibility for attendance and
// submissions is not a yes/no decision, so it is expressed as a query Scope instead.
package access

import (
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// ErrInstructorCannotEnroll is returned when an instructor tries to enroll in a course.
var ErrInstructorCannotEnroll = core.NewInvalidRoleError("Instructors cannot enroll.")

// Identity is the authenticated caller. A nil *Identity is an anonymous caller.
type Identity struct {
	UserID string
	Role   user.Role
}

func IdentityOf(usr user.User) *Identity {
	return &Identity{UserID: usr.ID, Role: usr.Role}
}

func (id *Identity) IsInstructor() bool { return id != nil && id.Role == user.RoleInstructor }
func (id *Identity) IsStudent() bool    { return id != nil && id.Role == user.RoleStudent }

// Owns reports whether the identity is the instructor owning a course.
func (id *Identity) Owns(instructorID string) bool {
	return id != nil && id.UserID != "" && id.UserID == instructorID
}

type Kind string

const (
	KindCourse     Kind = "course"
	KindLesson     Kind = "lesson"
	KindAssignment Kind = "assignment"
	KindSubmission Kind = "submission"
	KindEnrollment Kind = "enrollment"
	KindRoster     Kind = "roster"
	KindAttendance Kind = "attendance"
)

type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionGrade    Action = "grade"
)

func (a Action) IsRead() bool {
	return a == ActionList || a == ActionRetrieve
}

// Resource is the target of an Action.
// OwnerID is the instructor of the course the resource belongs to; it is empty when
// no course is involved yet (e.g. creating a course).
type Resource struct {
	Kind    Kind
	OwnerID string
}

// Authorize returns nil when identity may perform action on res, otherwise one of
// core.ErrUnauthenticated, core.ErrForbidden or ErrInstructorCannotEnroll.
func Authorize(identity *Identity, action Action, res Resource) error {
	switch res.Kind {
	case KindCourse, KindLesson, KindAssignment:
		if action.IsRead() {
			return nil // catalog reads are public
		}
		if identity == nil {
			return core.ErrUnauthenticated
		}
		if !identity.IsInstructor() {
			return core.ErrForbidden
		}
		if res.Kind == KindCourse && action == ActionCreate {
			return nil
		}
		return requireOwner(identity, res)

	case KindSubmission:
		if identity == nil {
			return core.ErrUnauthenticated
		}
		switch action {
		case ActionCreate:
			if !identity.IsStudent() {
				return core.ErrForbidden
			}
			return nil
		case ActionList, ActionRetrieve:
			return nil // narrowed by ScopeFor
		default:
			return requireOwner(identity, res)
		}

	case KindEnrollment:
		if identity == nil {
			return core.ErrUnauthenticated
		}
		if action == ActionCreate && !identity.IsStudent() {
			return ErrInstructorCannotEnroll
		}
		return nil

	case KindRoster:
		if identity == nil {
			return core.ErrUnauthenticated
		}
		return requireOwner(identity, res)

	case KindAttendance:
		if identity == nil {
			return core.ErrUnauthenticated
		}
		if action.IsRead() {
			return nil // narrowed by ScopeFor
		}
		return requireOwner(identity, res)
	}
	return core.ErrForbidden
}

func requireOwner(identity *Identity, res Resource) error {
	if identity.Owns(res.OwnerID) {
		return nil
	}
	return core.ErrForbidden
}
