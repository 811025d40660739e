package access_test

import (
	"context"
	"testing"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	dummydb "github.com/darasahq/darasa/storage/database/dummy"
	testutil "github.com/darasahq/darasa/tests"
)

type fixture struct {
	resolver *access.Resolver

	teacher, rival, ta, student, classmate, outsider user.User
	cs101, math2a                                    course.Course
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	crsRepo := dummydb.NewCourseRepository(db)

	conf := core.NewConfig()
	conf.TestMode = true
	usrSvc := user.NewServiceMock(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf)

	f := fixture{resolver: access.NewResolver(crsRepo, usrSvc)}
	f.teacher = testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "", user.RoleInstructor, true)
	f.rival = testutil.CreateUser(t, usrRepo, "rival", "rival@test.cd", "", user.RoleInstructor, true)
	f.ta = testutil.CreateUser(t, usrRepo, "aide", "aide@test.cd", "", user.RoleTA, true)
	f.student = testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "", user.RoleStudent, true)
	f.classmate = testutil.CreateUser(t, usrRepo, "buddy", "buddy@test.cd", "", user.RoleStudent, true)
	f.outsider = testutil.CreateUser(t, usrRepo, "loner", "loner@test.cd", "", user.RoleStudent, true)

	f.cs101 = testutil.CreateCourse(t, crsRepo, "Intro to CS", "CS101", f.teacher)
	f.math2a = testutil.CreateCourse(t, crsRepo, "Calculus", "MATH-2A", f.rival)
	testutil.Enroll(t, crsRepo, f.student, f.cs101)
	testutil.Enroll(t, crsRepo, f.classmate, f.cs101)
	testutil.AssignTA(t, crsRepo, f.ta, f.cs101)
	return f
}

func TestResolver_Scope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		usr  user.User
		want []string
	}{
		{name: "student sees enrolled courses", usr: f.student, want: []string{f.cs101.ID}},
		{name: "instructor sees taught courses", usr: f.teacher, want: []string{f.cs101.ID}},
		{name: "TA sees assisted courses", usr: f.ta, want: []string{f.cs101.ID}},
		{name: "outsider sees nothing", usr: f.outsider, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := f.resolver.Scope(ctx, tt.usr)
			if err != nil {
				t.Fatalf("Scope() error = %v", err)
			}
			got := scope.CourseIDs()
			if len(got) != len(tt.want) {
				t.Fatalf("Scope() = %v; want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Scope() = %v; want %v", got, tt.want)
				}
			}
		})
	}
}

func TestResolver_InScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		usr      user.User
		courseID string
		want     bool
	}{
		{name: "enrolled student", usr: f.student, courseID: f.cs101.ID, want: true},
		{name: "student outside the course", usr: f.student, courseID: f.math2a.ID, want: false},
		{name: "owning instructor", usr: f.teacher, courseID: f.cs101.ID, want: true},
		{name: "other instructor", usr: f.rival, courseID: f.cs101.ID, want: false},
		{name: "assigned TA", usr: f.ta, courseID: f.cs101.ID, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.resolver.InScope(ctx, tt.usr, tt.courseID)
			if err != nil {
				t.Fatalf("InScope() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("InScope() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_CanGrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		usr  user.User
		crs  course.Course
		want bool
	}{
		{name: "owning instructor", usr: f.teacher, crs: f.cs101, want: true},
		{name: "other instructor", usr: f.rival, crs: f.cs101, want: false},
		{name: "assigned TA", usr: f.ta, crs: f.cs101, want: true},
		{name: "TA on another course", usr: f.ta, crs: f.math2a, want: false},
		{name: "student", usr: f.student, crs: f.cs101, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.resolver.CanGrade(ctx, tt.usr, tt.crs)
			if err != nil {
				t.Fatalf("CanGrade() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CanGrade() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_PermittedRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		usr  user.User
		want []string // usernames, sorted
	}{
		{name: "student sees course staff only", usr: f.student, want: []string{"aide", "teach"}},
		{name: "instructor sees staff and students", usr: f.teacher, want: []string{"aide", "buddy", "hero"}},
		{name: "TA sees staff and students", usr: f.ta, want: []string{"buddy", "hero", "teach"}},
		{name: "outsider sees nobody", usr: f.outsider, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipients, err := f.resolver.PermittedRecipients(ctx, tt.usr)
			if err != nil {
				t.Fatalf("PermittedRecipients() error = %v", err)
			}
			got := make([]string, 0, len(recipients))
			for _, rcp := range recipients {
				got = append(got, rcp.Username)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("PermittedRecipients() = %v; want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("PermittedRecipients() = %v; want %v", got, tt.want)
				}
			}
		})
	}
}

func TestResolver_CanMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		usr       user.User
		recipient user.User
		want      bool
	}{
		{name: "student to instructor", usr: f.student, recipient: f.teacher, want: true},
		{name: "student to TA", usr: f.student, recipient: f.ta, want: true},
		{name: "student to classmate", usr: f.student, recipient: f.classmate, want: false},
		{name: "instructor to student", usr: f.teacher, recipient: f.student, want: true},
		{name: "instructor to foreign student", usr: f.rival, recipient: f.student, want: false},
		{name: "nobody messages themselves", usr: f.teacher, recipient: f.teacher, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.resolver.CanMessage(ctx, tt.usr, tt.recipient.ID)
			if err != nil {
				t.Fatalf("CanMessage() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CanMessage() = %v; want %v", got, tt.want)
			}
		})
	}
}
