package utils

import (
	"context"
	"errors"
	"fmt"
)

// ConfigError marks a problem with the run configuration (save path, batch
// file, flags). It is fatal to the whole run.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Kind() ErrorKind { return KindConfig }

func NewConfigError(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}

type kinded interface {
	Kind() ErrorKind
}

// KindOf classifies err. Errors that carry no kind are treated as transient.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindTransient
}

func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
