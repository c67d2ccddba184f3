package auth

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// UsernameTag is the validation tag checking ValidUsername
const UsernameTag = "username"

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidUsername reports whether name only uses letters, digits, '-' and '_'
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// RegisterValidations adds the account tags to v. The server registers them on
// the gin binding engine and the CLI on its own validator.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation(UsernameTag, func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register username validation: %w", err)
	}
	return nil
}
