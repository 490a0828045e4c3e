package reminders

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names ("time", "userId") rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		_, _, err := ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return v
}

// validateStruct runs the struct tags of in and converts failures to a *ValidationError.
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating %T: %w", in, err)
	}
	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			verr.Problems = append(verr.Problems, fe.Field()+" is required")
		case "timeofday":
			verr.badTime = true
			verr.Problems = append(verr.Problems, fe.Field()+" must be HH:MM")
		case "oneof":
			verr.Problems = append(verr.Problems, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			verr.Problems = append(verr.Problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return verr
}
