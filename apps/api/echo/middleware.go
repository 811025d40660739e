package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/darasahq/darasa/core/user"
)

// roleMiddleware restricts a route to callers holding one of the given roles.
func roleMiddleware(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func instructorMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleInstructor)
}

func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleInstructor, user.RoleTA)
}

func studentMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleStudent)
}
