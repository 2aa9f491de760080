package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/session"
)

const (
	principalKey = "principal"
	credErrKey   = "credential_error"

	// CredentialStatusHeader reports how the bearer credential resolved:
	// none, valid, expired or invalid.
	CredentialStatusHeader = "X-Credential-Status"
)

// Authenticate resolves the Bearer credential of every request into a
// principal. It never rejects a request: a missing, expired or invalid
// credential yields the anonymous principal, and the outcome is reported in
// the X-Credential-Status response header. Protected routes add RequireAuth.
func Authenticate(resolver *session.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			claims, err := resolver.Resolve(raw)
			status := "valid"
			switch {
			case raw == "":
				status = "none"
			case errors.Is(err, model.ErrExpiredCredential):
				status = "expired"
			case err != nil:
				status = "invalid"
			}
			c.Response().Header().Set(CredentialStatusHeader, status)
			c.Set(principalKey, claims.Principal)
			if err != nil {
				c.Set(credErrKey, err)
			}
			return next(c)
		}
	}
}

func bearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// PrincipalFrom returns the principal stored by Authenticate, or the
// anonymous principal when the middleware did not run.
func PrincipalFrom(c echo.Context) model.Principal {
	if p, ok := c.Get(principalKey).(model.Principal); ok {
		return p
	}
	return model.Anonymous
}

// RequireAuth rejects anonymous requests with 401. The error code tells an
// expired credential apart from an invalid or missing one.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !PrincipalFrom(c).IsAnonymous() {
				return next(c)
			}
			err := model.ErrUnauthorized
			if credErr, ok := c.Get(credErrKey).(error); ok {
				err = credErr
			}
			return deny(c, http.StatusUnauthorized, err)
		}
	}
}

// deny writes the standard error body and stops the chain.
func deny(c echo.Context, status int, err error) error {
	msg := err.Error()
	if model.Code(err) == "internal_error" {
		msg = http.StatusText(status)
	}
	return c.JSON(status, map[string]string{"error": model.Code(err), "message": msg})
}
