package server

import (
	"errors"
	"fmt"
)

var (
	errEmpty         = errors.New("must not be empty")
	errNotADirectory = errors.New("not a directory")
)

// ConfigError reports a configuration value, certificate or key that
// prevents the server from starting.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// BindError reports a listener that could not be opened.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("listen (%s) failed: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
