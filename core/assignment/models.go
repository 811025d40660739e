package assignment

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

// Assignment types
const (
	TypeHomework = "homework"
	TypeQuiz     = "quiz"
	TypeExam     = "exam"
)

type Assignment struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DueDate     string      `json:"due_date"` // ISO date (YYYY-MM-DD)
	Type        string      `json:"assignment_type"`
	CourseID    null.String `json:"course_id"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
}

// DueAt parses the assignment's due date. ok is false when the stored string
// does not parse.
func (a Assignment) DueAt() (due time.Time, ok bool) {
	due, err := core.ParseISODate(a.DueDate)
	return due, err == nil
}

// IsLate reports whether a submission at submittedAt missed the due date.
// An unparseable due date never marks a submission late.
func (a Assignment) IsLate(submittedAt time.Time) bool {
	due, ok := a.DueAt()
	if !ok {
		return false
	}
	return submittedAt.After(due)
}

// Submission is the single current submission for an (assignment, student)
// pair; resubmission overwrites it in place.
type Submission struct {
	ID           string       `json:"id"`
	AssignmentID string       `json:"assignment_id"`
	StudentID    string       `json:"student_id"`
	Content      null.String  `json:"content"`
	FilePath     null.String  `json:"file_path"`
	SubmittedAt  time.Time    `json:"submitted_at"` // UTC
	Grade        null.Float64 `json:"grade"`
}

// CourseGrade is a student's grade summary for one course.
type CourseGrade struct {
	CourseID    string  `json:"course_id"`
	CourseTitle string  `json:"course_title"`
	CourseCode  string  `json:"course_code"`
	Average     float64 `json:"average"`
	GradedCount int     `json:"graded_count"`
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string `json:"title" validate:"required,max=128"`
	Description string `json:"description" validate:"required,max=512"`
	DueDate     string `json:"due_date" validate:"required,isodate"`
	Type        string `json:"assignment_type" validate:"required,oneof=homework quiz exam"`
	CourseID    string `json:"course_id" validate:"required,uuid4"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.DueDate = core.CleanString(na.DueDate)
	na.Type = core.CleanString(na.Type, true /* lower */)
	na.CourseID = core.CleanString(na.CourseID, true /* lower */)
	return validate.Struct(na)
}

// NewSubmission carries a student's submission content and/or uploaded file.
type NewSubmission struct {
	Content  string
	FileName string // original filename; empty when no file was uploaded
	File     io.Reader
}

var allowedUploadExts = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".txt": {}, ".zip": {},
	".py": {}, ".java": {}, ".cpp": {}, ".c": {},
}

var errFileTypeNotAllowed = fmt.Errorf("only documents and code files are allowed")

func (ns *NewSubmission) Validate() error {
	ns.Content = core.CleanString(ns.Content)
	if ns.FileName == "" {
		return nil
	}
	ns.FileName = SanitizeFilename(ns.FileName)
	ext := strings.ToLower(filepath.Ext(ns.FileName))
	if _, ok := allowedUploadExts[ext]; !ok {
		return core.NewValidationError(errFileTypeNotAllowed,
			core.FieldError{Field: "file", Error: errFileTypeNotAllowed.Error()})
	}
	return nil
}

// GradeSubmission carries a grade value in [0, 100].
type GradeSubmission struct {
	Grade *float64 `json:"grade" validate:"required,gte=0,lte=100"`
}

func (gs GradeSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(gs)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeFilename strips any path components and unsafe characters from a
// client-provided filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}
