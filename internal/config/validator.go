package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the ProxyConfig using struct tags and cross-field rules.
func (c *ProxyConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateTargetMutualExclusion(); err != nil {
		return err
	}

	return nil
}

// validateTargetMutualExclusion ensures at most one of Target.HTTP or
// Target.Command is set; in DevMode, both may be empty (smoke-test mode).
func (c *ProxyConfig) validateTargetMutualExclusion() error {
	hasHTTP := c.Target.HTTP != ""
	hasCommand := c.Target.Command != ""

	if hasHTTP && hasCommand {
		return errors.New("target: specify http OR command, not both")
	}
	if !hasHTTP && !hasCommand && !c.DevMode {
		return errors.New("target: one of http or command is required")
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
