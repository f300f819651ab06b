package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/service"
)

// CustomValidator plugs go-playground/validator into echo.  Field names in
// errors are the JSON names.
type CustomValidator struct {
	v *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{v: v}
}

// Validate returns a *service.ValidationError for the first failing field.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &service.ValidationError{Field: fe.Field(), Msg: describe(fe)}
	}
	return &service.ValidationError{Msg: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}

// bindAndValidate decodes the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return &service.ValidationError{Msg: "invalid body"}
	}
	return c.Validate(req)
}

// respondError maps a service or repository error onto the HTTP taxonomy.
// Unknown errors are logged and reported as a generic 500.
func respondError(c echo.Context, err error) error {
	var (
		ve *service.ValidationError
		ae *service.AvailabilityError
	)
	switch {
	case errors.As(err, &ve):
		body := echo.Map{"error": ve.Error()}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &ae):
		return c.JSON(http.StatusConflict, echo.Map{"error": ae.Error(), "date": ae.Date})
	case errors.Is(err, service.ErrInsufficientAvailability):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrAccommodationNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request timed out, please try again"})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "something went wrong, please try again"})
}

// identity returns the caller set by the JWT middleware.
func identity(c echo.Context) (model.Identity, bool) {
	return middleware.IdentityFrom(c)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}
