package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

var courseColumns = []string{"id", "title", "description", "code", "teacher_id", "image_url", "created_at"}

type courseRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	Code        string      `db:"code"`
	TeacherID   string      `db:"teacher_id"`
	ImageURL    null.String `db:"image_url"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (row courseRow) toCourse() course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description.String,
		Code:        row.Code,
		TeacherID:   row.TeacherID,
		ImageURL:    row.ImageURL,
		CreatedAt:   row.CreatedAt,
	}
}

func toCourses(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code string) error {
	q, args, err := psql.Select("COUNT(*)").From("course").Where(sq.Eq{"code": code}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return errors.Wrap(err, "checking code uniqueness")
	}
	if count > 0 {
		return course.ErrCodeExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q, args, err := psql.Insert("course").
		Columns("title", "description", "code", "teacher_id", "image_url", "created_at").
		Values(crs.Title, crs.Description, crs.Code, crs.TeacherID, crs.ImageURL, crs.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.QueryRowContext(ctx, q, args...).Scan(&crs.ID); err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	return repo.getCourse(ctx, sq.Eq{"id": id})
}

func (repo *courseRepository) GetCourseByCode(ctx context.Context, code string) (course.Course, error) {
	return repo.getCourse(ctx, sq.Eq{"code": code})
}

func (repo *courseRepository) getCourse(ctx context.Context, pred interface{}) (course.Course, error) {
	q, args, err := psql.Select(courseColumns...).From("course").Where(pred).Limit(1).ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	return repo.queryCourses(ctx, psql.Select(courseColumns...).From("course").OrderBy("code ASC"))
}

func (repo *courseRepository) QueryCoursesByTeacher(ctx context.Context, teacherID string) ([]course.Course, error) {
	return repo.queryCourses(ctx, psql.Select(courseColumns...).
		From("course").
		Where(sq.Eq{"teacher_id": teacherID}).
		OrderBy("code ASC"))
}

func (repo *courseRepository) QueryCoursesEnrolled(ctx context.Context, studentID string) ([]course.Course, error) {
	return repo.queryCourses(ctx, psql.Select(prefixed("c", courseColumns)...).
		From("course c").
		Join("enrollment e ON e.course_id = c.id").
		Where(sq.Eq{"e.student_id": studentID}).
		OrderBy("c.code ASC"))
}

func (repo *courseRepository) QueryCoursesAssisted(ctx context.Context, taID string) ([]course.Course, error) {
	return repo.queryCourses(ctx, psql.Select(prefixed("c", courseColumns)...).
		From("course c").
		Join("ta_assignment t ON t.course_id = c.id").
		Where(sq.Eq{"t.ta_id": taID}).
		OrderBy("c.code ASC"))
}

func (repo *courseRepository) queryCourses(ctx context.Context, qb sq.SelectBuilder) ([]course.Course, error) {
	q, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return toCourses(rows), nil
}

// DeleteCourse removes the course; dependent rows cascade via foreign keys.
func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	q, args, err := psql.Delete("course").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	q, args, err := psql.Insert("enrollment").
		Columns("student_id", "course_id", "created_at").
		Values(enr.StudentID, enr.CourseID, enr.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.QueryRowContext(ctx, q, args...).Scan(&enr.ID); err != nil {
		return course.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *courseRepository) EnrollmentExists(ctx context.Context, studentID, courseID string) (bool, error) {
	return repo.exists(ctx, "enrollment", sq.Eq{"student_id": studentID, "course_id": courseID})
}

func (repo *courseRepository) QueryEnrolledStudents(ctx context.Context, courseID string) ([]user.User, error) {
	return repo.queryUsers(ctx, psql.Select(prefixed("u", userColumns)...).
		From(userTable+" u").
		Join("enrollment e ON e.student_id = u.id").
		Where(sq.Eq{"e.course_id": courseID}).
		OrderBy("u.username ASC"))
}

func (repo *courseRepository) CreateTAAssignment(ctx context.Context, ta course.TAAssignment) (course.TAAssignment, error) {
	q, args, err := psql.Insert("ta_assignment").
		Columns("ta_id", "course_id", "created_at").
		Values(ta.TAID, ta.CourseID, ta.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return course.TAAssignment{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.QueryRowContext(ctx, q, args...).Scan(&ta.ID); err != nil {
		return course.TAAssignment{}, errors.Wrap(err, "creating TA assignment")
	}
	return ta, nil
}

func (repo *courseRepository) TAAssignmentExists(ctx context.Context, taID, courseID string) (bool, error) {
	return repo.exists(ctx, "ta_assignment", sq.Eq{"ta_id": taID, "course_id": courseID})
}

func (repo *courseRepository) DeleteTAAssignment(ctx context.Context, taID, courseID string) error {
	q, args, err := psql.Delete("ta_assignment").Where(sq.Eq{"ta_id": taID, "course_id": courseID}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "deleting TA assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrTANotAssigned
	}
	return nil
}

func (repo *courseRepository) QueryAssignedTAs(ctx context.Context, courseID string) ([]user.User, error) {
	return repo.queryUsers(ctx, psql.Select(prefixed("u", userColumns)...).
		From(userTable+" u").
		Join("ta_assignment t ON t.ta_id = u.id").
		Where(sq.Eq{"t.course_id": courseID}).
		OrderBy("u.username ASC"))
}

func (repo *courseRepository) queryUsers(ctx context.Context, qb sq.SelectBuilder) ([]user.User, error) {
	q, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo *courseRepository) exists(ctx context.Context, table string, pred interface{}) (bool, error) {
	q, args, err := psql.Select("COUNT(*)").From(table).Where(pred).ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return false, errors.Wrap(err, "checking existence")
	}
	return count > 0, nil
}

// prefixed qualifies columns with a table alias.
func prefixed(alias string, columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		out = append(out, alias+"."+col)
	}
	return out
}
