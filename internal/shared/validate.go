package shared

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
)

// NewValidator returns a validator that reports fields by their JSON names
// and compares decimal amounts numerically.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	return v
}

// ValidateStruct runs v over target and converts failures into a
// *httpx.ValidationError keyed by JSON field path.
func ValidateStruct(v *validator.Validate, target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe.Namespace())] = fieldMessage(fe)
	}
	return httpx.NewValidationError(fields)
}

// MergeFieldErrors combines a validation result with extra field messages.
// It returns nil when there is nothing to report.
func MergeFieldErrors(err error, extra map[string]string) error {
	var verr *httpx.ValidationError
	switch {
	case err == nil && len(extra) == 0:
		return nil
	case err == nil:
		return httpx.NewValidationError(extra)
	case !errors.As(err, &verr):
		return err
	}
	for k, msg := range extra {
		if _, exists := verr.Fields[k]; !exists {
			verr.Fields[k] = msg
		}
	}
	return verr
}

func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a valid id"
	case "datetime":
		return "must be a date formatted " + fe.Param()
	case "len":
		return "must be " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
