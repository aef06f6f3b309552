package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// groupMiddleware lets through people belonging to any of the named groups.
// It must run after the required auth middleware.
func (a *auth) groupMiddleware(names ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := a.currentPerson(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context person")
			}
			for _, name := range names {
				if p.InGroupNamed(name) {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func (a *auth) adminMiddleware() echo.MiddlewareFunc {
	return a.groupMiddleware(a.conf.AdminGroup)
}
