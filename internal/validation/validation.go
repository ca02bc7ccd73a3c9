// Package validation checks the shape of user-supplied account fields and
// reports the first violation as a Format error.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/igarcialujan/user-management-api/internal/security"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

const passwordRules = "required,min=8,max=72,bcryptlen,nowhitespace"

type Validator struct {
	validate *validator.Validate
}

type profile struct {
	Name     string `json:"name" validate:"required,trimmed"`
	Username string `json:"username" validate:"required,min=4,nowhitespace"`
	Email    string `json:"email" validate:"required,email"`
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("trimmed", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return strings.TrimSpace(value) == value
	})
	// max counts runes, bcrypt counts bytes
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= security.MaxPasswordBytes
	})
	_ = v.RegisterValidation("nowhitespace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})

	return &Validator{validate: v}
}

// Registration checks the profile fields first, then the password.
func (v *Validator) Registration(name string, username string, email string, password string) error {
	if err := v.Profile(name, username, email); err != nil {
		return err
	}
	return v.Password(password)
}

func (v *Validator) Profile(name string, username string, email string) error {
	return v.structErr(profile{Name: name, Username: username, Email: email})
}

func (v *Validator) Password(password string) error {
	return v.varErr("password", password, passwordRules)
}

func (v *Validator) structErr(value any) error {
	if err := v.validate.Struct(value); err != nil {
		return toFormat(err, "")
	}
	return nil
}

func (v *Validator) varErr(field string, value string, rules string) error {
	if err := v.validate.Var(value, rules); err != nil {
		return toFormat(err, field)
	}
	return nil
}

func toFormat(err error, field string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apierror.Format("invalid input")
	}

	first := fieldErrs[0]
	name := field
	if name == "" {
		name = first.Field()
	}

	return apierror.Format(message(name, first.Tag(), first.Param()))
}

func message(field string, tag string, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s should have at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s should have at most %s characters", field, param)
	case "trimmed":
		return fmt.Sprintf("%s should not have white spaces around", field)
	case "nowhitespace":
		return fmt.Sprintf("%s should not have white spaces", field)
	case "bcryptlen":
		return fmt.Sprintf("%s is too long", field)
	case "email":
		return "please enter a valid email address"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
