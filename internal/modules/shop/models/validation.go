package models

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var peruMobile = regexp.MustCompile(`^9\d{8}$`)

// Validate checks the `validate` tags on request and input structs.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("peru_mobile", func(fl validator.FieldLevel) bool {
		return peruMobile.MatchString(fl.Field().String())
	})
	return v
}
