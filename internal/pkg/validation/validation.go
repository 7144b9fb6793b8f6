// internal/pkg/validation/validation.go
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerOnce sync.Once

// Register installs the storefront rules on gin's validator engine
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = Configure(v)
	})
	return err
}

// Configure adds tag naming, decimal support and custom rules to v
func Configure(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// decimal.Decimal fields validate as float64 so gte/gt/lte apply
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		return err
	}

	return v.RegisterValidation("report_reason", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "IRRELEVANT", "INAPPROPRIATE", "FALSE", "OTHER":
			return true
		}
		return false
	})
}

// FormatErrors turns validator failures into per-field messages. It returns
// nil when err is not a validation failure.
func FormatErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "notblank":
			out[field] = fmt.Sprintf("%s is required", field)
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		case "gt":
			out[field] = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "gte":
			out[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		case "lte":
			out[field] = fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
		case "email":
			out[field] = fmt.Sprintf("%s must be a valid email", field)
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		case "report_reason":
			out[field] = fmt.Sprintf("%s must be one of IRRELEVANT, INAPPROPRIATE, FALSE, OTHER", field)
		case "url":
			out[field] = fmt.Sprintf("%s must be a valid URL", field)
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return out
}
