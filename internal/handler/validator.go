package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// Validator plugs go-playground/validator into echo.Context.Validate.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

// Validate reports the first failed field as model.ErrInvalidInput.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		name := strings.ToLower(f.Field())
		if f.Tag() == "required" {
			return fmt.Errorf("%w: %s is required", model.ErrInvalidInput, name)
		}
		return fmt.Errorf("%w: %s failed %s", model.ErrInvalidInput, name, f.Tag())
	}
	return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
}

// bind decodes the request body into dst and validates it. Decoding errors
// are reported as model.ErrInvalidInput.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", model.ErrInvalidInput)
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}
