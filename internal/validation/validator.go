package validation

import (
	"regexp"

	validatorv10 "github.com/go-playground/validator/v10"
)

// Colombian mobile numbers: 3xx followed by 7 digits, optional separators.
var phonePattern = regexp.MustCompile(`^(3\d{2})[-.\s]?\d{3}[-.\s]?\d{4}$`)

// New returns a configured validator with the custom rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	_ = v.RegisterValidation("phone_co", func(fl validatorv10.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}
