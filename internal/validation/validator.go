package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	app_errors "chatstore/internal/errors"

	"github.com/go-playground/validator/v10"
)

// This file provides a process-wide validator shared by the HTTP layer,
// the services and the configuration loader.

var (
	// validate holds the single instance of the validator.
	validate *validator.Validate
	// once ensures that the validator is initialized only one time.
	once sync.Once

	// Chat ids double as record keys and file names.
	chatIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
)

// customRules are the tags registered on the shared validator.
var customRules = map[string]validator.Func{
	"chatid": func(fl validator.FieldLevel) bool {
		return chatIDPattern.MatchString(fl.Field().String())
	},
}

// newValidator builds a validator with rules registered on top of the
// built-in tags.
func newValidator(rules map[string]validator.Func) (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("failed to register %q validation: %w", tag, err)
		}
	}
	return v, nil
}

// getInstance uses sync.Once to safely initialize and return the validator singleton.
// A rule that cannot be registered is a programming error and panics.
func getInstance() *validator.Validate {
	once.Do(func() {
		v, err := newValidator(customRules)
		if err != nil {
			panic(err)
		}
		validate = v
	})
	return validate
}

// Struct checks a payload against the rules in its `validate` tags.
// If validation fails, it returns a wrapped `app_errors.ErrInvalidArgument`
// with a readable message.
func Struct(payload interface{}) error {
	err := getInstance().Struct(payload)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: an unexpected error occurred during validation: %s", app_errors.ErrInvalidArgument, err.Error())
	}

	var errorMessages []string
	for _, fieldErr := range validationErrors {
		// Example output: "Field 'Role' failed on the 'required' tag"
		errorMessages = append(errorMessages, fmt.Sprintf("Field '%s' failed on the '%s' tag", fieldErr.Field(), fieldErr.Tag()))
	}
	return fmt.Errorf("%w: %s", app_errors.ErrInvalidArgument, strings.Join(errorMessages, "; "))
}

// ChatID reports whether id is a usable chat id.
func ChatID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: chat id is required", app_errors.ErrInvalidArgument)
	}
	if err := getInstance().Var(id, "chatid"); err != nil {
		return fmt.Errorf("%w: chat id %q must be 1-128 letters, digits, '-' or '_'", app_errors.ErrInvalidArgument, id)
	}
	return nil
}
