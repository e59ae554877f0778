package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Format validation errors
	var messages []string
	for _, fe := range validationErrs {
		field := strings.ToLower(fe.Field())
		param := fe.Param()
		unit := "characters"
		if fe.Kind() == reflect.Slice {
			unit = "entries"
		}

		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must have at least "+param+" "+unit)
		case "max":
			messages = append(messages, field+" must have at most "+param+" "+unit)
		case "oneof":
			messages = append(messages, field+" must be one of: "+param)
		default:
			messages = append(messages, field+" is invalid")
		}
	}

	return errors.New(strings.Join(messages, ", "))
}
