package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate runs struct-tag validation plus the cross-field checks a plain
// tag can't express, mirroring the teacher's Validate()/cross-field-check
// split.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := c.validateTargetMutualExclusion(); err != nil {
		return err
	}
	if err := c.validatePortForTransport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTargetMutualExclusion() error {
	hasCommand := strings.TrimSpace(c.Target.Command) != ""
	hasURL := strings.TrimSpace(c.Target.URL) != ""
	switch {
	case hasCommand && hasURL:
		return errors.New("config: target.command and target.url are mutually exclusive")
	case !hasCommand && !hasURL:
		return errors.New("config: target.command or target.url is required")
	}
	return nil
}

func (c *Config) validatePortForTransport() error {
	if c.TransportType == TransportHTTPStream && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("config: port must be between 1 and 65535 for transportType %q", TransportHTTPStream)
	}
	return nil
}

// formatValidationErrors turns validator.ValidationErrors into a single
// user-friendly message, the way the teacher's formatValidationErrors
// does for its much larger OSSConfig.
func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, fe := range errs {
		messages = append(messages, formatSingleValidationError(fe))
	}
	return fmt.Errorf("config: %s", strings.Join(messages, "; "))
}

func formatSingleValidationError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
