package session

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SignInInput carries sign-in credentials
type SignInInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// SignUpInput carries the fields of a new account
type SignUpInput struct {
	Username        string
	Email           string `validate:"required,email"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput returns a user-facing failure for the first rejected field
func validateInput(input any) *Failure {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalidInput(MsgSomethingWrong, err)
	}

	fe := fieldErrs[0]
	return invalidInput(fieldMessage(fe), err)
}

func fieldMessage(fe validator.FieldError) string {
	field := humanField(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "email":
		return "Please enter a valid email address."
	case "eqfield":
		return "Passwords do not match."
	default:
		return field + " is invalid."
	}
}

func humanField(name string) string {
	switch name {
	case "ConfirmPassword":
		return "Password confirmation"
	default:
		return strings.TrimSpace(name)
	}
}
