package notify

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned when a factory is asked for an unknown tag.
var ErrUnsupportedProvider = errors.New("unsupported provider type")

// ConfigError reports a required connection parameter that is missing at
// provider construction time.
type ConfigError struct {
	Provider string
	Field    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s not configured", e.Provider, e.Field)
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
