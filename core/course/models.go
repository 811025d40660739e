package course

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

type Course struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Code        string      `json:"code"`
	TeacherID   string      `json:"teacher_id"`
	ImageURL    null.String `json:"image_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
}

// Enrollment links one student to one course. (student_id, course_id) is unique.
type Enrollment struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// TAAssignment links one teaching assistant to one course. (ta_id, course_id) is unique.
type TAAssignment struct {
	ID        string    `json:"id"`
	TAID      string    `json:"ta_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string `json:"name" validate:"required,max=140"`
	Code        string `json:"code" validate:"required,max=32,coursecode"`
	Description string `json:"description" validate:"required,max=512"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=255"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	nc.Description = core.CleanString(nc.Description)
	nc.ImageURL = core.CleanString(nc.ImageURL)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, nc.Code)
}

// EnrollStudent identifies the student to enroll by username or email.
type EnrollStudent struct {
	StudentIdentifier string `json:"student_identifier" validate:"required,min=3,max=120"`
}

func (es *EnrollStudent) Validate(validate *validator.Validate) error {
	es.StudentIdentifier = core.CleanString(es.StudentIdentifier, true /* lower */)
	return validate.Struct(es)
}

// AssignTA identifies the teaching assistant to assign to a course.
type AssignTA struct {
	TAID string `json:"ta_id" validate:"required,uuid4"`
}

func (at *AssignTA) Validate(validate *validator.Validate) error {
	at.TAID = core.CleanString(at.TAID, true /* lower */)
	return validate.Struct(at)
}
