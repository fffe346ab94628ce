package config

import "fmt"

// ConfigurationError is fatal at startup and rejected on reload.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Msg)
}

func errField(field, format string, a ...interface{}) error {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, a...)}
}
