package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"smart-reader/internal/service"
)

var fieldMessages = map[string]string{
	"email.required":    "Email is required",
	"email.email":       "Invalid email format",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"confirm.required":  "Please confirm password",
	"confirm.eqfield":   "Passwords do not match",
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate checks req and turns tag failures into a *service.ValidationError
// with one message per field.
func validate(v *validator.Validate, req interface{}) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			if fe.Tag() == "required" {
				msg = fmt.Sprintf("%s is required", fe.Field())
			} else {
				msg = fmt.Sprintf("%s is invalid", fe.Field())
			}
		}
		fields[fe.Field()] = msg
	}
	return &service.ValidationError{Fields: fields}
}
