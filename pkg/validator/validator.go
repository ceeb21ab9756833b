package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = field + " is required"
			case "required_with":
				errors[field] = field + " is required when " + e.Param() + " is set"
			case "required_without":
				errors[field] = field + " is required unless " + e.Param() + " is set"
			case "email":
				errors[field] = field + " must be a valid email address"
			case "min":
				errors[field] = field + " must be at least " + e.Param() + sizeUnit(e)
			case "max":
				errors[field] = field + " must be at most " + e.Param() + sizeUnit(e)
			case "gt":
				errors[field] = field + " must be greater than " + e.Param()
			case "gte":
				errors[field] = field + " must be greater than or equal to " + e.Param()
			case "lte":
				errors[field] = field + " must be less than or equal to " + e.Param()
			case "oneof":
				errors[field] = field + " must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
			case "latitude":
				errors[field] = field + " must be a latitude between -90 and 90"
			case "longitude":
				errors[field] = field + " must be a longitude between -180 and 180"
			case "datetime":
				errors[field] = field + " must match the format " + e.Param()
			case "e164":
				errors[field] = field + " must be a phone number in international format"
			default:
				errors[field] = field + " is invalid"
			}
		}
	}

	return errors
}

func sizeUnit(e validator.FieldError) string {
	switch e.Kind() {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	default:
		return ""
	}
}
