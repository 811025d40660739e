package assignment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)

type (
	// FileStore persists uploaded submission files under a configured directory.
	FileStore interface {
		Save(name string, src io.Reader) error
		Remove(name string) error
		Open(name string) (io.ReadCloser, error)
	}

	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		// FilterAssignments returns assignments belonging to any of courseIDs.
		// Supported ordering fields: "due_date", "course" (course code), "created_at".
		FilterAssignments(ctx context.Context, courseIDs []string, orderings []core.DBOrdering) ([]Assignment, error)

		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
		// GetSubmission returns ErrSubmissionNotFound when no row exists for the pair.
		GetSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		QuerySubmissionsByAssignment(ctx context.Context, assignmentID string) ([]Submission, error)
		QueryGradedSubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, caller user.User, na NewAssignment) (Assignment, error)
		GetByID(ctx context.Context, id string) (Assignment, error)
		QueryForUser(ctx context.Context, usr user.User, orderings []core.DBOrdering) ([]Assignment, error)
		Submit(ctx context.Context, student user.User, asg Assignment, ns NewSubmission) (Submission, error)
		Grade(ctx context.Context, grader user.User, submissionID string, value float64) (Submission, error)
		Submissions(ctx context.Context, grader user.User, asg Assignment) ([]Submission, error)
		GradeReport(ctx context.Context, student user.User) ([]CourseGrade, error)
	}

	service struct {
		repo      Repository
		courseSvc course.ServiceInterface
		resolver  *access.Resolver
		files     FileStore
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, courseSvc course.ServiceInterface, resolver *access.Resolver, files FileStore) *service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		resolver:  resolver,
		files:     files,
	}
}

// Create creates an assignment under a course owned by caller.
func (svc *service) Create(ctx context.Context, caller user.User, na NewAssignment) (Assignment, error) {
	crs, err := svc.courseSvc.GetByID(ctx, na.CourseID)
	if err != nil {
		return Assignment{}, err
	}
	if !svc.resolver.OwnsCourse(caller, crs) {
		return Assignment{}, core.ErrPermissionDenied
	}

	asg := Assignment{
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
		Type:        na.Type,
		CourseID:    null.StringFrom(crs.ID),
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

func (svc *service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

// QueryForUser lists the assignments of the caller's permitted scope.
func (svc *service) QueryForUser(ctx context.Context, usr user.User, orderings []core.DBOrdering) ([]Assignment, error) {
	scope, err := svc.resolver.Scope(ctx, usr)
	if err != nil {
		return nil, err
	}
	if scope.IsEmpty() {
		return []Assignment{}, nil
	}
	return svc.repo.FilterAssignments(ctx, scope.CourseIDs(), orderings)
}

// Submit creates or overwrites the student's submission for asg. A prior
// submission is updated in place: content replaced, file replaced (the old file
// is deleted) and submitted_at refreshed.
func (svc *service) Submit(ctx context.Context, student user.User, asg Assignment, ns NewSubmission) (Submission, error) {
	if !student.IsStudent() || !asg.CourseID.Valid {
		return Submission{}, core.ErrPermissionDenied
	}
	ok, err := svc.resolver.InScope(ctx, student, asg.CourseID.String)
	if err != nil {
		return Submission{}, errors.Wrap(err, "resolving scope")
	}
	if !ok {
		return Submission{}, core.ErrPermissionDenied
	}

	var filePath null.String
	if ns.FileName != "" && ns.File != nil {
		name := fmt.Sprintf("%s_%s_%s", student.ID, asg.ID, ns.FileName)
		if err := svc.files.Save(name, ns.File); err != nil {
			return Submission{}, errors.Wrap(err, "saving submission file")
		}
		filePath = null.StringFrom(name)
	}

	now := time.Now().UTC()
	prior, err := svc.repo.GetSubmission(ctx, asg.ID, student.ID)
	switch errors.Cause(err) {
	case nil:
		// resubmission: overwrite in place
		if filePath.Valid && prior.FilePath.Valid && prior.FilePath.String != filePath.String {
			if err := svc.files.Remove(prior.FilePath.String); err != nil {
				return Submission{}, errors.Wrap(err, "removing replaced submission file")
			}
		}
		prior.Content = null.NewString(ns.Content, ns.Content != "")
		if filePath.Valid {
			prior.FilePath = filePath
		}
		prior.SubmittedAt = now
		return svc.repo.UpdateSubmission(ctx, prior)
	case ErrSubmissionNotFound:
		sub := Submission{
			AssignmentID: asg.ID,
			StudentID:    student.ID,
			Content:      null.NewString(ns.Content, ns.Content != ""),
			FilePath:     filePath,
			SubmittedAt:  now,
		}
		return svc.repo.CreateSubmission(ctx, sub)
	default:
		return Submission{}, errors.Wrap(err, "finding prior submission")
	}
}

// Grade records a grade in [0,100] for a submission. The grader must be the
// course's instructor or an assigned TA; on failure the stored grade is left
// untouched.
func (svc *service) Grade(ctx context.Context, grader user.User, submissionID string, value float64) (Submission, error) {
	if value < 0 || value > 100 {
		return Submission{}, core.NewValidationError(nil,
			core.FieldError{Field: "grade", Error: "grade must be between 0 and 100"})
	}

	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	asg, err := svc.repo.GetAssignmentByID(ctx, sub.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if err := svc.checkCanGrade(ctx, grader, asg); err != nil {
		return Submission{}, err
	}

	sub.Grade = null.Float64From(value)
	return svc.repo.UpdateSubmission(ctx, sub)
}

// Submissions lists a grader's view of all submissions for asg.
func (svc *service) Submissions(ctx context.Context, grader user.User, asg Assignment) ([]Submission, error) {
	if err := svc.checkCanGrade(ctx, grader, asg); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissionsByAssignment(ctx, asg.ID)
}

func (svc *service) checkCanGrade(ctx context.Context, grader user.User, asg Assignment) error {
	if !asg.CourseID.Valid {
		return core.ErrPermissionDenied
	}
	crs, err := svc.courseSvc.GetByID(ctx, asg.CourseID.String)
	if err != nil {
		return err
	}
	ok, err := svc.resolver.CanGrade(ctx, grader, crs)
	if err != nil {
		return errors.Wrap(err, "checking grading permission")
	}
	if !ok {
		return core.ErrPermissionDenied
	}
	return nil
}

// GradeReport computes the student's per-course grade averages over graded
// submissions.
func (svc *service) GradeReport(ctx context.Context, student user.User) ([]CourseGrade, error) {
	courses, err := svc.courseSvc.QueryEnrolled(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	subs, err := svc.repo.QueryGradedSubmissionsByStudent(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	type agg struct {
		sum   float64
		count int
	}
	perCourse := make(map[string]*agg)
	for _, sub := range subs {
		asg, err := svc.repo.GetAssignmentByID(ctx, sub.AssignmentID)
		if err != nil {
			return nil, errors.Wrap(err, "finding graded assignment")
		}
		if !asg.CourseID.Valid {
			continue
		}
		a, ok := perCourse[asg.CourseID.String]
		if !ok {
			a = &agg{}
			perCourse[asg.CourseID.String] = a
		}
		a.sum += sub.Grade.Float64
		a.count++
	}

	report := make([]CourseGrade, 0, len(courses))
	for _, crs := range courses {
		cg := CourseGrade{
			CourseID:    crs.ID,
			CourseTitle: crs.Title,
			CourseCode:  crs.Code,
		}
		if a, ok := perCourse[crs.ID]; ok && a.count > 0 {
			cg.Average = a.sum / float64(a.count)
			cg.GradedCount = a.count
		}
		report = append(report, cg)
	}
	return report, nil
}
