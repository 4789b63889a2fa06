package service

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every InputError.
var ErrInvalidInput = errors.New("invalid input")

// Input error codes returned to API clients.
const (
	CodeInvalidDate       = "INVALID_DATE"
	CodeDateOutOfRange    = "DATE_OUT_OF_RANGE"
	CodeDateNotHistorical = "DATE_NOT_HISTORICAL"
	CodeUnknownPoint      = "UNKNOWN_SETTLEMENT_POINT"
)

// InputError rejects a request before any upstream call is made.
type InputError struct {
	Code string
	Hint string
	Err  error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Hint)
}

func (e *InputError) Unwrap() error { return e.Err }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }
