package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/user"
)

type messageApi struct {
	svc      message.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerMessageAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := messageApi{
		svc:      deps.MessageSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	mg := g.Group("/messages", jwt)
	mg.GET("", api.inbox)
	mg.POST("", api.send)
	mg.GET("/sent", api.sent)
	mg.GET("/recipients", api.recipients)
	mg.GET("/:id", api.retrieve)
	mg.POST("/:id/read", api.markRead)

	ag := g.Group("/announcements", jwt)
	ag.GET("", api.announcements)
	ag.POST("", api.postAnnouncement, staffMiddleware())
}

// Handlers

func (api *messageApi) inbox(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msgs, err := api.svc.Inbox(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying inbox")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) sent(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msgs, err := api.svc.Sent(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying sent messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) send(ctx echo.Context) error {
	var data message.ComposeMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ComposeMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.svc.Send(ctx.Request().Context(), usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == message.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting message")
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.svc.MarkRead(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == message.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *messageApi) recipients(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	recipients, err := api.svc.Recipients(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "resolving permitted recipients")
	}
	if recipients == nil {
		recipients = []user.User{}
	}
	return ctx.JSON(http.StatusOK, recipients)
}

func (api *messageApi) announcements(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	anns, err := api.svc.Announcements(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *messageApi) postAnnouncement(ctx echo.Context) error {
	var data message.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ann, err := api.svc.PostAnnouncement(ctx.Request().Context(), usr, data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, ann)
}
