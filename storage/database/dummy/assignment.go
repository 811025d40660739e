package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	asg.ID = uuid.NewString()
	repo.db.assignment.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	if asg, ok := repo.db.assignment.assignments[id]; ok {
		return *asg, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) FilterAssignments(ctx context.Context, courseIDs []string, orderings []core.DBOrdering) ([]assignment.Assignment, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	wanted := make(map[string]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = struct{}{}
	}

	assignments := make([]assignment.Assignment, 0)
	for _, asg := range repo.db.assignment.assignments {
		if !asg.CourseID.Valid {
			continue
		}
		if _, ok := wanted[asg.CourseID.String]; ok {
			assignments = append(assignments, *asg)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].Title < assignments[j].Title })
	repo.applyOrderings(assignments, orderings)
	return assignments, nil
}

func (repo *assignmentRepository) applyOrderings(assignments []assignment.Assignment, orderings []core.DBOrdering) {
	for i := len(orderings) - 1; i >= 0; i-- {
		ord := orderings[i]
		switch ord.Field {
		case "due_date":
			sort.SliceStable(assignments, func(i, j int) bool {
				if ord.Ascending {
					return assignments[i].DueDate < assignments[j].DueDate
				}
				return assignments[i].DueDate > assignments[j].DueDate
			})
		case "course":
			code := func(asg assignment.Assignment) string {
				if !asg.CourseID.Valid {
					return ""
				}
				if crs, ok := repo.db.course.courses[asg.CourseID.String]; ok {
					return crs.Code
				}
				return ""
			}
			sort.SliceStable(assignments, func(i, j int) bool {
				if ord.Ascending {
					return code(assignments[i]) < code(assignments[j])
				}
				return code(assignments[i]) > code(assignments[j])
			})
		case "created_at":
			sort.SliceStable(assignments, func(i, j int) bool {
				if ord.Ascending {
					return assignments[i].CreatedAt.Before(assignments[j].CreatedAt)
				}
				return assignments[i].CreatedAt.After(assignments[j].CreatedAt)
			})
		}
	}
}

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	sub.ID = uuid.NewString()
	repo.db.assignment.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	if _, ok := repo.db.assignment.submissions[sub.ID]; !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	repo.db.assignment.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	for _, sub := range repo.db.assignment.submissions {
		if sub.AssignmentID == assignmentID && sub.StudentID == studentID {
			return *sub, nil
		}
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) GetSubmissionByID(ctx context.Context, id string) (assignment.Submission, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	if sub, ok := repo.db.assignment.submissions[id]; ok {
		return *sub, nil
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) QuerySubmissionsByAssignment(ctx context.Context, assignmentID string) ([]assignment.Submission, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, sub := range repo.db.assignment.submissions {
		if sub.AssignmentID == assignmentID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *assignmentRepository) QueryGradedSubmissionsByStudent(ctx context.Context, studentID string) ([]assignment.Submission, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, sub := range repo.db.assignment.submissions {
		if sub.StudentID == studentID && sub.Grade.Valid {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}
