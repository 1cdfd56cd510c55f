package validators

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)

// IsUsername reports whether s is a valid username.
func IsUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// CustomValidator adapts go-playground/validator to echo.Validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns a validator with the app's custom rules registered
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return IsUsername(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

// Validate runs struct validation and turns failures into a 400
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, describe(err))
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "username":
			msgs = append(msgs, "username must be 3-30 characters of letters, numbers, underscores or dots")
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email")
		case "url":
			msgs = append(msgs, fe.Field()+" must be a valid URL")
		case "max", "min":
			msgs = append(msgs, fe.Field()+" must be "+fe.Tag()+" "+fe.Param())
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
