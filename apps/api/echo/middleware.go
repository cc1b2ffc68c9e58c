package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
)

// authenticatedMiddleware rejects requests whose token does not assert a usable identity.
func authenticatedMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextIdentity(ctx) == nil {
				return core.ErrUnauthenticated
			}
			return next(ctx)
		}
	}
}
