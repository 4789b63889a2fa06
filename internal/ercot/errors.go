package ercot

import (
	"errors"
	"fmt"

	"spp-forecast/internal/fetch"
)

var (
	// ErrConfiguration matches any ConfigError.
	ErrConfiguration = errors.New("ercot configuration error")
	// ErrSchema matches any SchemaError.
	ErrSchema = errors.New("unexpected ERCOT response shape")
	// ErrCircuitOpen is returned without calling upstream while the breaker
	// is open.
	ErrCircuitOpen = errors.New("ERCOT circuit open")
)

// ConfigError reports a missing credential or setting. It is never retried.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required setting: %s", e.Setting)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// SchemaError reports a response that does not match the expected shape.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrSchema, e.Reason)
	}
	return fmt.Sprintf("%s: field %q %s", ErrSchema, e.Field, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// IsRateLimited reports whether err means "try again later": a final 429
// from upstream or an open circuit breaker.
func IsRateLimited(err error) bool {
	return fetch.IsRateLimited(err) || errors.Is(err, ErrCircuitOpen)
}
