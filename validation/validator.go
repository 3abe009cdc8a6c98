// Package validation runs struct-tag validation and turns violations into
// field-level errors that the HTTP layer can return verbatim.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one violated constraint. Field is the JSON name of the field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Errors is the set of violations found in one validation pass.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Field+" "+fe.Message)
	}
	return "Invalid input data: " + strings.Join(msgs, ". ")
}

// Map returns the violations keyed by field name. The first violation of a field wins.
func (e Errors) Map() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// Validator implements a validator with lazy initialization.
type Validator struct {
	once     sync.Once
	validate *validator.Validate
}

// Default is the shared validator used by [Struct].
var Default = &Validator{}

// Struct validates obj with [Default].
func Struct(obj any) error {
	return Default.Struct(obj)
}

// Struct validates the fields of a struct against its `validate` tags.
// It returns nil, an [Errors] value, or a plain error when obj is not a struct.
func (v *Validator) Struct(obj any) error {
	if kindOfData(obj) != reflect.Struct {
		return fmt.Errorf("validation: expected struct, got %T", obj)
	}

	v.lazyinit()

	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

func (v *Validator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New(validator.WithRequiredStructEnabled())
		v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				name = f.Tag.Get("form")
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "e164":
		return "must be a valid phone number"
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "hexadecimal", "len":
		return "is malformed"
	default:
		return "is invalid"
	}
}

// kindOfData returns the reflection Kind of the passed data.
// If the data is a pointer, it returns the Kind of the referenced value.
func kindOfData(data any) reflect.Kind {
	value := reflect.ValueOf(data)
	valueType := value.Kind()

	if valueType == reflect.Ptr {
		valueType = value.Elem().Kind()
	}
	return valueType
}
