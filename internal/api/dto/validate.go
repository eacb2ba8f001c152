package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	return v
}

var messages = map[string]string{
	"required": "The %s field is required.",
	"email":    "The %s field must be a valid email address.",
	"min":      "The %s field must be at least %s characters.",
	"max":      "The %s field must not be greater than %s characters.",
	"oneof":    "The selected %s is invalid.",
	"eqfield":  "The %s field must match %s.",
}

// Validate checks struct tags and returns a validation DomainError whose
// fields follow the struct's field order.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.NewInternalError(err)
	}

	var fields []apperrors.FieldError
	index := map[string]int{}
	for _, e := range validationErrs {
		name := e.Field()
		msg := message(name, e)
		if i, ok := index[name]; ok {
			fields[i].Messages = append(fields[i].Messages, msg)
			continue
		}
		index[name] = len(fields)
		fields = append(fields, apperrors.FieldError{Field: name, Messages: []string{msg}})
	}
	return apperrors.NewValidationError(fields[0].Messages[0], fields...)
}

func message(field string, e validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	tmpl, ok := messages[e.Tag()]
	if !ok {
		return fmt.Sprintf("The %s field is invalid.", label)
	}
	switch strings.Count(tmpl, "%s") {
	case 2:
		param := e.Param()
		if e.Tag() == "eqfield" {
			param = strings.ToLower(param)
		}
		return fmt.Sprintf(tmpl, label, param)
	default:
		return fmt.Sprintf(tmpl, label)
	}
}
