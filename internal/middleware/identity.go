package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID identifies the caller for rate-limit keys. Anonymous callers
// share the "anon" bucket per IP.
func userID(c echo.Context) string {
	p := PrincipalFrom(c)
	if p.IsAnonymous() {
		return "anon"
	}
	return strconv.FormatUint(p.ID, 10)
}
