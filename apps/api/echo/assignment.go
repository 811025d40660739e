package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/assignment"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type assignmentApi struct {
	svc      assignment.ServiceInterface
	usrSvc   user.ServiceInterface
	resolver *access.Resolver
	files    assignment.FileStore
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assignmentApi{
		svc:      deps.AssignmentSvc,
		usrSvc:   deps.UserSvc,
		resolver: deps.Resolver,
		files:    deps.Files,
		validate: deps.Validate,
	}

	ag := g.Group("/assignments", jwt)
	ag.GET("", api.query)
	ag.POST("", api.create, instructorMiddleware())
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/submissions", api.submit, studentMiddleware())
	ag.GET("/:id/submissions", api.submissions, staffMiddleware())

	g.POST("/submissions/:id/grade", api.grade, jwt, staffMiddleware())
	g.GET("/download/:filename", api.download, jwt)
}

// Handlers

func (api *assignmentApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	assignments, err := api.svc.QueryForUser(ctx.Request().Context(), usr, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	asg, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return core.NewValidationError(course.ErrNotFound,
				core.FieldError{Field: "course_id", Error: course.ErrNotFound.Error()})
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	usr, asg, err := api.contextAssignment(ctx)
	if err != nil {
		return err
	}

	if !asg.CourseID.Valid {
		return errHttpNotFound
	}
	ok, err := api.resolver.InScope(ctx.Request().Context(), usr, asg.CourseID.String)
	if err != nil {
		return errors.Wrap(err, "resolving scope")
	}
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, asg)
}

// submit accepts a multipart form with optional `content` and `file` parts.
// A prior submission is overwritten in place.
func (api *assignmentApi) submit(ctx echo.Context) error {
	usr, asg, err := api.contextAssignment(ctx)
	if err != nil {
		return err
	}

	data := assignment.NewSubmission{Content: ctx.FormValue("content")}

	if fh, err := ctx.FormFile("file"); err == nil {
		src, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		defer func() { _ = src.Close() }()
		data.FileName = fh.Filename
		data.File = src
	}

	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), usr, asg, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SubmissionResponse{
		Submission: sub,
		Late:       asg.IsLate(sub.SubmittedAt),
	})
}

func (api *assignmentApi) submissions(ctx echo.Context) error {
	usr, asg, err := api.contextAssignment(ctx)
	if err != nil {
		return err
	}

	subs, err := api.svc.Submissions(ctx.Request().Context(), usr, asg)
	if err != nil {
		return err
	}

	resp := make([]SubmissionResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, SubmissionResponse{Submission: sub, Late: asg.IsLate(sub.SubmittedAt)})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	var data assignment.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), usr, ctx.Param("id"), *data.Grade)
	if err != nil {
		if errors.Cause(err) == assignment.ErrSubmissionNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

// download serves a stored submission file to its owner or a grader of the
// course it belongs to.
func (api *assignmentApi) download(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filename := assignment.SanitizeFilename(ctx.Param("filename"))

	// stored names are `{user_id}_{assignment_id}_{original_filename}`
	parts := strings.SplitN(filename, "_", 3)
	if len(parts) != 3 {
		return errHttpNotFound
	}
	ownerID, assignmentID := parts[0], parts[1]

	if usr.ID != ownerID {
		asg, err := api.svc.GetByID(ctx.Request().Context(), assignmentID)
		if err != nil {
			return errHttpNotFound
		}
		if err := api.canGrade(ctx, usr, asg); err != nil {
			return err
		}
	}

	rc, err := api.files.Open(filename)
	if err != nil {
		return errHttpNotFound
	}
	defer func() { _ = rc.Close() }()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+parts[2]+`"`)
	return ctx.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

func (api *assignmentApi) canGrade(ctx echo.Context, usr user.User, asg assignment.Assignment) error {
	if !asg.CourseID.Valid {
		return errHttpForbidden
	}
	crs, err := api.resolver.CourseByID(ctx.Request().Context(), asg.CourseID.String)
	if err != nil {
		return errHttpNotFound
	}
	ok, err := api.resolver.CanGrade(ctx.Request().Context(), usr, crs)
	if err != nil {
		return errors.Wrap(err, "checking grading permission")
	}
	if !ok {
		return errHttpForbidden
	}
	return nil
}

func (api *assignmentApi) contextAssignment(ctx echo.Context) (user.User, assignment.Assignment, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return user.User{}, assignment.Assignment{}, errors.Wrap(err, "getting context user")
	}

	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return user.User{}, assignment.Assignment{}, errHttpNotFound
		}
		return user.User{}, assignment.Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	return usr, asg, nil
}

type SubmissionResponse struct {
	Submission assignment.Submission `json:"submission"`
	Late       bool                  `json:"late"`
}
