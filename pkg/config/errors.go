package config

import "fmt"

// ConfigurationError reports a missing or invalid setting detected before any
// session work starts.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
