package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.course.courses))
	for _, crs := range repo.db.course.courses {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code string) error {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	for _, crs := range repo.db.course.courses {
		if crs.Code == code {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	crs.ID = uuid.NewString()
	repo.db.course.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if crs, ok := repo.db.course.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByCode(ctx context.Context, code string) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	for _, crs := range repo.db.course.courses {
		if crs.Code == code {
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()
	return repo.query(), nil
}

func (repo *courseRepository) QueryCoursesByTeacher(ctx context.Context, teacherID string) ([]course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.query() {
		if crs.TeacherID == teacherID {
			courses = append(courses, crs)
		}
	}
	return courses, nil
}

func (repo *courseRepository) QueryCoursesEnrolled(ctx context.Context, studentID string) ([]course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.query() {
		for _, enr := range repo.db.course.enrollments {
			if enr.StudentID == studentID && enr.CourseID == crs.ID {
				courses = append(courses, crs)
				break
			}
		}
	}
	return courses, nil
}

func (repo *courseRepository) QueryCoursesAssisted(ctx context.Context, taID string) ([]course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.query() {
		for _, ta := range repo.db.course.tas {
			if ta.TAID == taID && ta.CourseID == crs.ID {
				courses = append(courses, crs)
				break
			}
		}
	}
	return courses, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.course.courses, id)

	// cascade like the real schema's FKs
	for enrID, enr := range repo.db.course.enrollments {
		if enr.CourseID == id {
			delete(repo.db.course.enrollments, enrID)
		}
	}
	for taID, ta := range repo.db.course.tas {
		if ta.CourseID == id {
			delete(repo.db.course.tas, taID)
		}
	}

	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()
	for asgID, asg := range repo.db.assignment.assignments {
		if asg.CourseID.Valid && asg.CourseID.String == id {
			delete(repo.db.assignment.assignments, asgID)
			for subID, sub := range repo.db.assignment.submissions {
				if sub.AssignmentID == asgID {
					delete(repo.db.assignment.submissions, subID)
				}
			}
		}
	}

	repo.db.message.Lock()
	defer repo.db.message.Unlock()
	for annID, ann := range repo.db.message.announcements {
		if ann.CourseID == id {
			delete(repo.db.message.announcements, annID)
		}
	}
	return nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	enr.ID = uuid.NewString()
	repo.db.course.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) EnrollmentExists(ctx context.Context, studentID, courseID string) (bool, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	for _, enr := range repo.db.course.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) QueryEnrolledStudents(ctx context.Context, courseID string) ([]user.User, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var ids []string
	for _, enr := range repo.db.course.enrollments {
		if enr.CourseID == courseID {
			ids = append(ids, enr.StudentID)
		}
	}
	return repo.usersByID(ids)
}

func (repo *courseRepository) CreateTAAssignment(ctx context.Context, ta course.TAAssignment) (course.TAAssignment, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	ta.ID = uuid.NewString()
	repo.db.course.tas[ta.ID] = &ta
	return ta, nil
}

func (repo *courseRepository) TAAssignmentExists(ctx context.Context, taID, courseID string) (bool, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	for _, ta := range repo.db.course.tas {
		if ta.TAID == taID && ta.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) DeleteTAAssignment(ctx context.Context, taID, courseID string) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	for id, ta := range repo.db.course.tas {
		if ta.TAID == taID && ta.CourseID == courseID {
			delete(repo.db.course.tas, id)
			return nil
		}
	}
	return course.ErrTANotAssigned
}

func (repo *courseRepository) QueryAssignedTAs(ctx context.Context, courseID string) ([]user.User, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var ids []string
	for _, ta := range repo.db.course.tas {
		if ta.CourseID == courseID {
			ids = append(ids, ta.TAID)
		}
	}
	return repo.usersByID(ids)
}

func (repo *courseRepository) usersByID(ids []string) ([]user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.user.table[id]; ok {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}
