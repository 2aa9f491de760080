package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// RequireRole enforces that the authenticated principal has one of the
// given roles. Anonymous callers get 401, signed-in callers with another
// role get 403. It relies on Authenticate having run first.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFrom(c)
			if p.IsAnonymous() {
				return deny(c, http.StatusUnauthorized, model.ErrUnauthorized)
			}
			if !allowed[p.Role] {
				return deny(c, http.StatusForbidden, model.ErrForbidden)
			}
			return next(c)
		}
	}
}
