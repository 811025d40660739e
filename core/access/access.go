// Package access centralizes per-role visibility scoping and permission checks.
// Every list/detail/mutation path first computes the caller's permitted scope
// (a set of course ids) and either filters to it or rejects the request.
package access

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

// Scope is the set of course ids a given identity is permitted to view/act on.
type Scope struct {
	courseIDs map[string]struct{}
}

func NewScope(courseIDs ...string) Scope {
	s := Scope{courseIDs: make(map[string]struct{}, len(courseIDs))}
	for _, id := range courseIDs {
		s.courseIDs[id] = struct{}{}
	}
	return s
}

func (s Scope) Contains(courseID string) bool {
	_, ok := s.courseIDs[courseID]
	return ok
}

func (s Scope) IsEmpty() bool { return len(s.courseIDs) == 0 }

// CourseIDs returns the scope's course ids in stable (sorted) order.
func (s Scope) CourseIDs() []string {
	ids := make([]string, 0, len(s.courseIDs))
	for id := range s.courseIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type Resolver struct {
	courseRepo course.Repository
	usrSvc     user.ServiceInterface
}

func NewResolver(courseRepo course.Repository, usrSvc user.ServiceInterface) *Resolver {
	return &Resolver{
		courseRepo: courseRepo,
		usrSvc:     usrSvc,
	}
}

// Courses returns the courses visible to usr: enrolled courses for students,
// taught courses for instructors, assisted courses for TAs.
func (r *Resolver) Courses(ctx context.Context, usr user.User) ([]course.Course, error) {
	switch usr.Role {
	case user.RoleStudent:
		return r.courseRepo.QueryCoursesEnrolled(ctx, usr.ID)
	case user.RoleInstructor:
		return r.courseRepo.QueryCoursesByTeacher(ctx, usr.ID)
	case user.RoleTA:
		return r.courseRepo.QueryCoursesAssisted(ctx, usr.ID)
	}
	return nil, errors.Errorf("unknown role %q", usr.Role)
}

// Scope returns the set of course ids usr may view or act on.
func (r *Resolver) Scope(ctx context.Context, usr user.User) (Scope, error) {
	courses, err := r.Courses(ctx, usr)
	if err != nil {
		return Scope{}, err
	}
	ids := make([]string, 0, len(courses))
	for _, crs := range courses {
		ids = append(ids, crs.ID)
	}
	return NewScope(ids...), nil
}

// InScope reports whether courseID falls within usr's permitted scope.
func (r *Resolver) InScope(ctx context.Context, usr user.User, courseID string) (bool, error) {
	scope, err := r.Scope(ctx, usr)
	if err != nil {
		return false, err
	}
	return scope.Contains(courseID), nil
}

// CourseByID fetches a course by id, regardless of scope.
func (r *Resolver) CourseByID(ctx context.Context, id string) (course.Course, error) {
	return r.courseRepo.GetCourseByID(ctx, id)
}

// OwnsCourse reports whether usr is the course's instructor.
func (r *Resolver) OwnsCourse(usr user.User, crs course.Course) bool {
	return usr.IsInstructor() && crs.TeacherID == usr.ID
}

// CanGrade reports whether usr may grade submissions for crs: the owning
// instructor or an assigned TA.
func (r *Resolver) CanGrade(ctx context.Context, usr user.User, crs course.Course) (bool, error) {
	if r.OwnsCourse(usr, crs) {
		return true, nil
	}
	if usr.IsTA() {
		return r.courseRepo.TAAssignmentExists(ctx, usr.ID, crs.ID)
	}
	return false, nil
}

// PermittedRecipients returns the users usr may message:
//   - students: instructors and TAs of their enrolled courses
//   - instructors: students of their taught courses plus assigned TAs
//   - TAs: students and instructor of their assisted courses plus other TAs
func (r *Resolver) PermittedRecipients(ctx context.Context, usr user.User) ([]user.User, error) {
	courses, err := r.Courses(ctx, usr)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var recipients []user.User
	add := func(users ...user.User) {
		for _, u := range users {
			if u.ID == usr.ID {
				continue
			}
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			recipients = append(recipients, u)
		}
	}

	for _, crs := range courses {
		// course staff is visible to everyone in the course
		teacher, err := r.usrSvc.GetByID(ctx, crs.TeacherID)
		if err != nil {
			return nil, errors.Wrap(err, "finding course instructor")
		}
		add(teacher)

		tas, err := r.courseRepo.QueryAssignedTAs(ctx, crs.ID)
		if err != nil {
			return nil, errors.Wrap(err, "querying assigned TAs")
		}
		add(tas...)

		// students are only visible to staff
		if usr.IsStaff() {
			students, err := r.courseRepo.QueryEnrolledStudents(ctx, crs.ID)
			if err != nil {
				return nil, errors.Wrap(err, "querying enrolled students")
			}
			add(students...)
		}
	}

	sort.Slice(recipients, func(i, j int) bool { return recipients[i].Username < recipients[j].Username })
	return recipients, nil
}

// CanMessage reports whether recipientID is within usr's permitted-recipient set.
func (r *Resolver) CanMessage(ctx context.Context, usr user.User, recipientID string) (bool, error) {
	recipients, err := r.PermittedRecipients(ctx, usr)
	if err != nil {
		return false, err
	}
	for _, rcp := range recipients {
		if rcp.ID == recipientID {
			return true, nil
		}
	}
	return false, nil
}
