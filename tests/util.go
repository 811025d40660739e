package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/assignment"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	title, code string,
	teacher user.User,
) course.Course {
	t.Helper()

	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Description: title + " description",
		Code:        code,
		TeacherID:   teacher.ID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func Enroll(t *testing.T, repo course.Repository, student user.User, crs course.Course) course.Enrollment {
	t.Helper()

	enr, err := repo.CreateEnrollment(context.Background(), course.Enrollment{
		StudentID: student.ID,
		CourseID:  crs.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func AssignTA(t *testing.T, repo course.Repository, ta user.User, crs course.Course) course.TAAssignment {
	t.Helper()

	asn, err := repo.CreateTAAssignment(context.Background(), course.TAAssignment{
		TAID:      ta.ID,
		CourseID:  crs.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AssignTA() failed: %v", err)
	}
	return asn
}

func CreateAssignment(
	t *testing.T,
	repo assignment.Repository,
	title, dueDate, typ string,
	crs course.Course,
) assignment.Assignment {
	t.Helper()

	asg, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		Title:       title,
		Description: title + " description",
		DueDate:     dueDate,
		Type:        typ,
		CourseID:    null.StringFrom(crs.ID),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}

func CreateSubmission(
	t *testing.T,
	repo assignment.Repository,
	asg assignment.Assignment,
	student user.User,
	content string,
	submittedAt ...time.Time,
) assignment.Submission {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(submittedAt) > 0 {
		tstamp = submittedAt[0].UTC()
	}
	sub, err := repo.CreateSubmission(context.Background(), assignment.Submission{
		AssignmentID: asg.ID,
		StudentID:    student.ID,
		Content:      null.StringFrom(content),
		SubmittedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}

func CreateMessage(
	t *testing.T,
	repo message.Repository,
	sender, recipient user.User,
	subject string,
	sentAt ...time.Time,
) message.Message {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(sentAt) > 0 {
		tstamp = sentAt[0].UTC()
	}
	msg, err := repo.CreateMessage(context.Background(), message.Message{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Subject:     subject,
		Body:        subject + " body",
		SentAt:      tstamp,
	})
	if err != nil {
		t.Fatalf("CreateMessage() failed: %v", err)
	}
	return msg
}

func CreateAnnouncement(
	t *testing.T,
	repo message.Repository,
	crs course.Course,
	author user.User,
	title string,
) message.Announcement {
	t.Helper()

	ann, err := repo.CreateAnnouncement(context.Background(), message.Announcement{
		CourseID: crs.ID,
		AuthorID: author.ID,
		Title:    title,
		Content:  title + " content",
		PostedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAnnouncement() failed: %v", err)
	}
	return ann
}
