// Package validation provides declarative request validation for API
// handlers. Request structs declare their accepted shape with `validate`
// tags; failures are reported as a machine-readable list of per-field
// violations that handlers return verbatim in 400 responses.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldViolation describes one failed constraint on one field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// RequestError carries all violations for a rejected request.
type RequestError struct {
	Violations []FieldViolation
}

// NewRequestError builds a single-violation error for constraints that only
// domain code can check, like membership in the fixed secret field set.
func NewRequestError(field, rule, message string) *RequestError {
	return &RequestError{Violations: []FieldViolation{{
		Field:   field,
		Rule:    rule,
		Message: message,
	}}}
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton validator instance.
// Field names in violations come from json tags so API consumers see the
// wire names, not Go identifiers.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates a request struct. Returns nil if validation passes, or a
// *RequestError listing every per-field violation.
func Struct(s interface{}) *RequestError {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestError{Violations: []FieldViolation{{
			Field:   "request",
			Rule:    "invalid",
			Message: err.Error(),
		}}}
	}

	violations := make([]FieldViolation, len(fieldErrs))
	for i, fe := range fieldErrs {
		violations[i] = FieldViolation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: translate(fe),
		}
	}

	return &RequestError{Violations: violations}
}

// translate converts a validator.FieldError to a human-readable message.
func translate(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "uuid4", "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "url":
		return fmt.Sprintf("%s must be a well-formed URL", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s items or characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s items or characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
