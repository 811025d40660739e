package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type courseApi struct {
	svc      course.ServiceInterface
	usrSvc   user.ServiceInterface
	resolver *access.Resolver
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		usrSvc:   deps.UserSvc,
		resolver: deps.Resolver,
		validate: deps.Validate,
	}

	g.GET("/classes", api.classes, jwt)

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, instructorMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.DELETE("/:id", api.destroy, instructorMiddleware())
	cg.POST("/:id/enroll", api.enroll, instructorMiddleware())
	cg.POST("/:id/tas", api.assignTA, instructorMiddleware())
	cg.DELETE("/:id/tas/:taID", api.removeTA, instructorMiddleware())
}

// Handlers

// classes lists the courses visible to the caller: enrolled for students,
// taught for instructors, assisted for TAs.
func (api *courseApi) classes(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courses, err := api.resolver.Courses(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "resolving visible courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

// retrieve returns a course only when it falls within the caller's scope;
// everything else is a 404, in-scope or not is not leaked.
func (api *courseApi) retrieve(ctx echo.Context) error {
	usr, crs, err := api.contextCourse(ctx)
	if err != nil {
		return err
	}

	ok, err := api.resolver.InScope(ctx.Request().Context(), usr, crs.ID)
	if err != nil {
		return errors.Wrap(err, "resolving scope")
	}
	if !ok {
		return errHttpNotFound
	}

	students, err := api.svc.EnrolledStudents(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled students")
	}
	tas, err := api.svc.AssignedTAs(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying assigned TAs")
	}

	return ctx.JSON(http.StatusOK, CourseDetailResponse{
		Course:   crs,
		Students: students,
		TAs:      tas,
	})
}

func (api *courseApi) destroy(ctx echo.Context) error {
	usr, crs, err := api.contextCourse(ctx)
	if err != nil {
		return err
	}
	if !api.resolver.OwnsCourse(usr, crs) {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	usr, crs, err := api.contextCourse(ctx)
	if err != nil {
		return err
	}
	if !api.resolver.OwnsCourse(usr, crs) {
		return errHttpForbidden
	}

	var data course.EnrollStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), crs, data.StudentIdentifier)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) assignTA(ctx echo.Context) error {
	usr, crs, err := api.contextCourse(ctx)
	if err != nil {
		return err
	}
	if !api.resolver.OwnsCourse(usr, crs) {
		return errHttpForbidden
	}

	var data course.AssignTA
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTA")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ta, err := api.svc.AssignTA(ctx.Request().Context(), crs, data.TAID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ta)
}

func (api *courseApi) removeTA(ctx echo.Context) error {
	usr, crs, err := api.contextCourse(ctx)
	if err != nil {
		return err
	}
	if !api.resolver.OwnsCourse(usr, crs) {
		return errHttpForbidden
	}

	if err := api.svc.RemoveTA(ctx.Request().Context(), crs, ctx.Param("taID")); err != nil {
		if errors.Cause(err) == course.ErrTANotAssigned {
			return errHttpNotFound
		}
		return errors.Wrap(err, "removing TA")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) contextCourse(ctx echo.Context) (user.User, course.Course, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return user.User{}, course.Course{}, errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return user.User{}, course.Course{}, errHttpNotFound
		}
		return user.User{}, course.Course{}, errors.Wrap(err, "finding course by ID")
	}
	return usr, crs, nil
}

type CourseDetailResponse struct {
	Course   course.Course `json:"course"`
	Students []user.User   `json:"students"`
	TAs      []user.User   `json:"tas"`
}
