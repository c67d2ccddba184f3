package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shopdesk-dev/shopdesk/internal/auth"
	"github.com/shopdesk-dev/shopdesk/internal/cli/prompt"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := auth.RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type registration struct {
	Email    string `validate:"required,email"`
	Username string `validate:"required,min=3,max=32,username"`
	Password string `validate:"required,min=8"`
}

type otpCredentials struct {
	Email string `validate:"required,email"`
	OTP   string `validate:"required,len=6,numeric"`
}

// validateInput checks v before any request is sent
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "len":
			msgs = append(msgs, fmt.Sprintf("%s must be exactly %s characters", field, fe.Param()))
		case "numeric":
			msgs = append(msgs, field+" must contain only digits")
		case auth.UsernameTag:
			msgs = append(msgs, field+" may only contain letters, digits, '-' and '_'")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// flagOrEnv returns value, falling back to the named environment variable
func flagOrEnv(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}

// readSecretIfEmpty prompts for a hidden value when none was provided
func readSecretIfEmpty(value, label, hint string) (string, error) {
	if value != "" {
		return value, nil
	}
	secret, err := prompt.ReadSecret(label)
	if errors.Is(err, prompt.ErrNonInteractive) {
		return "", fmt.Errorf("%s is required in non-interactive mode (%s)", strings.ToLower(label), hint)
	}
	return secret, err
}
