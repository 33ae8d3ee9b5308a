package validators

import (
	"reflect"
	"strings"

	"appointly/cmd/internal/timerange"
	"github.com/go-playground/validator/v10"
)

// IsUSDate checks MM/DD/YYYY dates.
func IsUSDate(fl validator.FieldLevel) bool {
	_, err := timerange.ParseDate(fl.Field().String())
	return err == nil
}

// IsClock12 checks hh:mm A wall-clock times.
func IsClock12(fl validator.FieldLevel) bool {
	_, err := timerange.ParseClock(fl.Field().String())
	return err == nil
}

// Register installs the custom tags on validate.
func Register(validate *validator.Validate) {
	_ = validate.RegisterValidation("usdate", IsUSDate)
	_ = validate.RegisterValidation("clock12", IsClock12)
}

// New returns a validator that reports fields by their json names and knows
// the custom tags.
func New() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	Register(validate)
	return validate
}
