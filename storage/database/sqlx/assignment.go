package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assignment"
)

var (
	assignmentColumns = []string{"id", "title", "description", "due_date", "assignment_type", "course_id", "created_at"}
	submissionColumns = []string{"id", "assignment_id", "student_id", "content", "file_path", "submitted_at", "grade"}
)

type assignmentRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	DueDate     string      `db:"due_date"`
	Type        string      `db:"assignment_type"`
	CourseID    null.String `db:"course_id"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (row assignmentRow) toAssignment() assignment.Assignment {
	return assignment.Assignment{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description.String,
		DueDate:     row.DueDate,
		Type:        row.Type,
		CourseID:    row.CourseID,
		CreatedAt:   row.CreatedAt,
	}
}

type submissionRow struct {
	ID           string       `db:"id"`
	AssignmentID string       `db:"assignment_id"`
	StudentID    string       `db:"student_id"`
	Content      null.String  `db:"content"`
	FilePath     null.String  `db:"file_path"`
	SubmittedAt  time.Time    `db:"submitted_at"`
	Grade        null.Float64 `db:"grade"`
}

func (row submissionRow) toSubmission() assignment.Submission {
	return assignment.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		StudentID:    row.StudentID,
		Content:      row.Content,
		FilePath:     row.FilePath,
		SubmittedAt:  row.SubmittedAt,
		Grade:        row.Grade,
	}
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	q, args, err := psql.Insert("assignment").
		Columns("title", "description", "due_date", "assignment_type", "course_id", "created_at").
		Values(asg.Title, asg.Description, asg.DueDate, asg.Type, asg.CourseID, asg.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.QueryRowContext(ctx, q, args...).Scan(&asg.ID); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	q, args, err := psql.Select(assignmentColumns...).From("assignment").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "building query")
	}
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) FilterAssignments(ctx context.Context, courseIDs []string, orderings []core.DBOrdering) ([]assignment.Assignment, error) {
	if len(courseIDs) == 0 {
		return []assignment.Assignment{}, nil
	}

	allowed := map[string]string{
		"due_date":   "a.due_date",
		"course":     "c.code",
		"created_at": "a.created_at",
	}
	qb := psql.Select(prefixed("a", assignmentColumns)...).
		From("assignment a").
		LeftJoin("course c ON c.id = a.course_id").
		Where(sq.Eq{"a.course_id": courseIDs}).
		OrderBy(orderBy(orderings, allowed, "a.due_date ASC")...)

	q, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering assignments")
	}
	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.toAssignment())
	}
	return assignments, nil
}

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	q, args, err := psql.Insert("submission").
		Columns("assignment_id", "student_id", "content", "file_path", "submitted_at", "grade").
		Values(sub.AssignmentID, sub.StudentID, sub.Content, sub.FilePath, sub.SubmittedAt, sub.Grade).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.QueryRowContext(ctx, q, args...).Scan(&sub.ID); err != nil {
		return assignment.Submission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	q, args, err := psql.Update("submission").
		Set("content", sub.Content).
		Set("file_path", sub.FilePath).
		Set("submitted_at", sub.SubmittedAt).
		Set("grade", sub.Grade).
		Where(sq.Eq{"id": sub.ID}).
		ToSql()
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return sub, nil
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	return repo.getSubmission(ctx, sq.Eq{"assignment_id": assignmentID, "student_id": studentID})
}

func (repo *assignmentRepository) GetSubmissionByID(ctx context.Context, id string) (assignment.Submission, error) {
	return repo.getSubmission(ctx, sq.Eq{"id": id})
}

func (repo *assignmentRepository) getSubmission(ctx context.Context, pred interface{}) (assignment.Submission, error) {
	q, args, err := psql.Select(submissionColumns...).From("submission").Where(pred).Limit(1).ToSql()
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "building query")
	}
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "getting submission")
	}
	return row.toSubmission(), nil
}

func (repo *assignmentRepository) QuerySubmissionsByAssignment(ctx context.Context, assignmentID string) ([]assignment.Submission, error) {
	return repo.querySubmissions(ctx, sq.Eq{"assignment_id": assignmentID})
}

func (repo *assignmentRepository) QueryGradedSubmissionsByStudent(ctx context.Context, studentID string) ([]assignment.Submission, error) {
	return repo.querySubmissions(ctx, sq.And{sq.Eq{"student_id": studentID}, sq.NotEq{"grade": nil}})
}

func (repo *assignmentRepository) querySubmissions(ctx context.Context, pred interface{}) ([]assignment.Submission, error) {
	q, args, err := psql.Select(submissionColumns...).From("submission").Where(pred).OrderBy("submitted_at ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]assignment.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toSubmission())
	}
	return subs, nil
}
