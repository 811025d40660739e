package course

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrCodeExists      = errors.New("a course with this code already exists")
	ErrNotInstructor   = errors.New("only instructors may own courses")
	ErrUserNotFound    = errors.New("no user matches this username or email")
	ErrNotEnrollable   = errors.New("only students can be enrolled")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")
	ErrNotTA           = errors.New("user is not a teaching assistant")
	ErrAlreadyAssigned = errors.New("teaching assistant is already assigned to this course")
	ErrTANotAssigned   = errors.New("teaching assistant is not assigned to this course")
)

type (
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists when a course holds the given code.
		CheckCodeUniqueness(ctx context.Context, code string) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseByCode(ctx context.Context, code string) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		QueryCoursesByTeacher(ctx context.Context, teacherID string) ([]Course, error)
		QueryCoursesEnrolled(ctx context.Context, studentID string) ([]Course, error)
		QueryCoursesAssisted(ctx context.Context, taID string) ([]Course, error)
		// DeleteCourse removes the course; enrollments, TA assignments, assignments
		// and announcements cascade at the storage layer.
		DeleteCourse(ctx context.Context, id string) error

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		EnrollmentExists(ctx context.Context, studentID, courseID string) (bool, error)
		QueryEnrolledStudents(ctx context.Context, courseID string) ([]user.User, error)

		CreateTAAssignment(ctx context.Context, ta TAAssignment) (TAAssignment, error)
		TAAssignmentExists(ctx context.Context, taID, courseID string) (bool, error)
		// DeleteTAAssignment returns ErrTANotAssigned when no such assignment exists.
		DeleteTAAssignment(ctx context.Context, taID, courseID string) error
		QueryAssignedTAs(ctx context.Context, courseID string) ([]user.User, error)
	}

	ServiceInterface interface {
		CheckCodeUniqueness(ctx context.Context, code string) error
		Create(ctx context.Context, instructor user.User, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		QueryAll(ctx context.Context) ([]Course, error)
		QueryByTeacher(ctx context.Context, teacherID string) ([]Course, error)
		QueryEnrolled(ctx context.Context, studentID string) ([]Course, error)
		QueryAssisted(ctx context.Context, taID string) ([]Course, error)
		Delete(ctx context.Context, id string) error
		Enroll(ctx context.Context, crs Course, identifier string) (Enrollment, error)
		EnrolledStudents(ctx context.Context, courseID string) ([]user.User, error)
		AssignTA(ctx context.Context, crs Course, taID string) (TAAssignment, error)
		RemoveTA(ctx context.Context, crs Course, taID string) error
		AssignedTAs(ctx context.Context, courseID string) ([]user.User, error)
	}

	service struct {
		repo   Repository
		usrSvc user.ServiceInterface
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, usrSvc user.ServiceInterface) *service {
	return &service{
		repo:   repo,
		usrSvc: usrSvc,
	}
}

func (svc *service) CheckCodeUniqueness(ctx context.Context, code string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, instructor user.User, nc NewCourse) (Course, error) {
	if !instructor.IsInstructor() {
		return Course{}, ErrNotInstructor
	}
	crs := Course{
		Title:       nc.Name,
		Description: nc.Description,
		Code:        nc.Code,
		TeacherID:   instructor.ID,
		ImageURL:    null.NewString(nc.ImageURL, nc.ImageURL != ""),
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *service) QueryByTeacher(ctx context.Context, teacherID string) ([]Course, error) {
	return svc.repo.QueryCoursesByTeacher(ctx, teacherID)
}

func (svc *service) QueryEnrolled(ctx context.Context, studentID string) ([]Course, error) {
	return svc.repo.QueryCoursesEnrolled(ctx, studentID)
}

func (svc *service) QueryAssisted(ctx context.Context, taID string) ([]Course, error) {
	return svc.repo.QueryCoursesAssisted(ctx, taID)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

// Enroll resolves identifier (username or email) to a student and enrolls them.
func (svc *service) Enroll(ctx context.Context, crs Course, identifier string) (Enrollment, error) {
	fieldErr := func(err error) error {
		return core.NewValidationError(err, core.FieldError{Field: "student_identifier", Error: err.Error()})
	}

	student, err := svc.usrSvc.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Enrollment{}, fieldErr(ErrUserNotFound)
		}
		return Enrollment{}, errors.Wrap(err, "finding user by username or email")
	}
	if !student.Role.Enrollable() {
		return Enrollment{}, fieldErr(ErrNotEnrollable)
	}

	exists, err := svc.repo.EnrollmentExists(ctx, student.ID, crs.ID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}
	if exists {
		return Enrollment{}, fieldErr(ErrAlreadyEnrolled)
	}

	enr := Enrollment{
		StudentID: student.ID,
		CourseID:  crs.ID,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

func (svc *service) EnrolledStudents(ctx context.Context, courseID string) ([]user.User, error) {
	return svc.repo.QueryEnrolledStudents(ctx, courseID)
}

func (svc *service) AssignTA(ctx context.Context, crs Course, taID string) (TAAssignment, error) {
	fieldErr := func(err error) error {
		return core.NewValidationError(err, core.FieldError{Field: "ta_id", Error: err.Error()})
	}

	ta, err := svc.usrSvc.GetByID(ctx, taID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return TAAssignment{}, fieldErr(ErrUserNotFound)
		}
		return TAAssignment{}, errors.Wrap(err, "finding user by ID")
	}
	if !ta.IsTA() {
		return TAAssignment{}, fieldErr(ErrNotTA)
	}

	exists, err := svc.repo.TAAssignmentExists(ctx, ta.ID, crs.ID)
	if err != nil {
		return TAAssignment{}, errors.Wrap(err, "checking TA assignment")
	}
	if exists {
		return TAAssignment{}, fieldErr(ErrAlreadyAssigned)
	}

	assignment := TAAssignment{
		TAID:      ta.ID,
		CourseID:  crs.ID,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateTAAssignment(ctx, assignment)
}

func (svc *service) RemoveTA(ctx context.Context, crs Course, taID string) error {
	return svc.repo.DeleteTAAssignment(ctx, taID, crs.ID)
}

func (svc *service) AssignedTAs(ctx context.Context, courseID string) ([]user.User, error) {
	return svc.repo.QueryAssignedTAs(ctx, courseID)
}
