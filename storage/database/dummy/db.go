// Package dummydb provides in-memory repositories for tests and local
// development without a running database.
package dummydb

import (
	"sync"

	"github.com/darasahq/darasa/core/assignment"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		assignment *assignmentTable
		message    *messageTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		courses     map[string]*course.Course
		enrollments map[string]*course.Enrollment
		tas         map[string]*course.TAAssignment
	}

	assignmentTable struct {
		sync.RWMutex
		assignments map[string]*assignment.Assignment
		submissions map[string]*assignment.Submission
	}

	messageTable struct {
		sync.RWMutex
		messages      map[string]*message.Message
		announcements map[string]*message.Announcement
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			courses:     make(map[string]*course.Course),
			enrollments: make(map[string]*course.Enrollment),
			tas:         make(map[string]*course.TAAssignment),
		},
		assignment: &assignmentTable{
			assignments: make(map[string]*assignment.Assignment),
			submissions: make(map[string]*assignment.Submission),
		},
		message: &messageTable{
			messages:      make(map[string]*message.Message),
			announcements: make(map[string]*message.Announcement),
		},
	}
	return db, nil
}
