package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/assignment"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/user"
)

type homeApi struct {
	usrSvc   user.ServiceInterface
	asgSvc   assignment.ServiceInterface
	msgSvc   message.ServiceInterface
	resolver *access.Resolver
}

func registerHomeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := homeApi{
		usrSvc:   deps.UserSvc,
		asgSvc:   deps.AssignmentSvc,
		msgSvc:   deps.MessageSvc,
		resolver: deps.Resolver,
	}

	g.GET("/home", api.home, jwt)
	g.GET("/grades", api.grades, jwt)
}

// Handlers

// home is the role-scoped dashboard: the caller's courses, their upcoming
// assignments (due today or later) and the unread message count.
func (api *homeApi) home(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rctx := ctx.Request().Context()

	courses, err := api.resolver.Courses(rctx, usr)
	if err != nil {
		return errors.Wrap(err, "resolving visible courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}

	assignments, err := api.asgSvc.QueryForUser(rctx, usr, []core.DBOrdering{{Field: "due_date", Ascending: true}})
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	upcoming := make([]assignment.Assignment, 0, len(assignments))
	for _, asg := range assignments {
		if due, ok := asg.DueAt(); ok && due.Before(today) {
			continue
		}
		upcoming = append(upcoming, asg)
	}

	unread, err := api.msgSvc.UnreadCount(rctx, usr)
	if err != nil {
		return errors.Wrap(err, "counting unread messages")
	}

	return ctx.JSON(http.StatusOK, HomeResponse{
		User:                usr,
		Courses:             courses,
		UpcomingAssignments: upcoming,
		UnreadMessages:      unread,
	})
}

// grades returns the per-course averages for a student, or the gradebook of
// the caller's scope for instructors and TAs.
func (api *homeApi) grades(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rctx := ctx.Request().Context()

	if usr.IsStudent() {
		report, err := api.asgSvc.GradeReport(rctx, usr)
		if err != nil {
			return errors.Wrap(err, "computing grade report")
		}
		return ctx.JSON(http.StatusOK, report)
	}

	courses, err := api.resolver.Courses(rctx, usr)
	if err != nil {
		return errors.Wrap(err, "resolving visible courses")
	}
	assignments, err := api.asgSvc.QueryForUser(rctx, usr, []core.DBOrdering{{Field: "course", Ascending: true}})
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}

	byCourse := make(map[string][]GradebookAssignment, len(courses))
	for _, asg := range assignments {
		subs, err := api.asgSvc.Submissions(rctx, usr, asg)
		if err != nil {
			return errors.Wrap(err, "querying submissions")
		}
		entries := make([]SubmissionResponse, 0, len(subs))
		for _, sub := range subs {
			entries = append(entries, SubmissionResponse{Submission: sub, Late: asg.IsLate(sub.SubmittedAt)})
		}
		byCourse[asg.CourseID.String] = append(byCourse[asg.CourseID.String], GradebookAssignment{
			Assignment:  asg,
			Submissions: entries,
		})
	}

	gradebook := make([]GradebookCourse, 0, len(courses))
	for _, crs := range courses {
		entries := byCourse[crs.ID]
		if entries == nil {
			entries = []GradebookAssignment{}
		}
		gradebook = append(gradebook, GradebookCourse{Course: crs, Assignments: entries})
	}
	return ctx.JSON(http.StatusOK, gradebook)
}

type (
	HomeResponse struct {
		User                user.User               `json:"user"`
		Courses             []course.Course         `json:"courses"`
		UpcomingAssignments []assignment.Assignment `json:"upcoming_assignments"`
		UnreadMessages      int                     `json:"unread_messages"`
	}

	GradebookAssignment struct {
		Assignment  assignment.Assignment `json:"assignment"`
		Submissions []SubmissionResponse  `json:"submissions"`
	}

	GradebookCourse struct {
		Course      course.Course         `json:"course"`
		Assignments []GradebookAssignment `json:"assignments"`
	}
)
