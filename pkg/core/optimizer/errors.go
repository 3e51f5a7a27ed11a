package optimizer

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ConfigError reports an invalid run configuration. It is returned before any assignment work starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid run configuration: %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err is or wraps a ConfigError
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// fromValidationError converts the first validator failure into a ConfigError
func fromValidationError(err error) *ConfigError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return &ConfigError{Field: "config", Reason: err.Error()}
	}

	fe := validationErrors[0]
	field := fe.Namespace()
	// Drop the struct name prefix, e.g. "RunConfig.start" -> "start"
	for i := 0; i < len(field); i++ {
		if field[i] == '.' {
			field = field[i+1:]
			break
		}
	}

	switch fe.Tag() {
	case "required":
		return configErrorf(field, "is required")
	case "datetime":
		return configErrorf(field, "must be a date formatted as %s, got %v", fe.Param(), fe.Value())
	case "oneof":
		return configErrorf(field, "must be one of [%s], got %v", fe.Param(), fe.Value())
	case "gte", "min":
		return configErrorf(field, "must be at least %s, got %v", fe.Param(), fe.Value())
	case "lte", "max":
		return configErrorf(field, "must be at most %s, got %v", fe.Param(), fe.Value())
	default:
		return configErrorf(field, "failed %q validation", fe.Tag())
	}
}
