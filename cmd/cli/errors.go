package main

import (
	"errors"
	"fmt"

	"spp-forecast/internal/ercot"
	"spp-forecast/internal/service"
)

// describe adds the user-facing hint to errors that have one.
func describe(err error) error {
	var input *service.InputError
	switch {
	case errors.As(err, &input) && input.Hint != "":
		return fmt.Errorf("%s: %s", input.Code, input.Hint)
	case ercot.IsRateLimited(err):
		return fmt.Errorf("%w (hint: ERCOT API rate limit hit, retry shortly)", err)
	case errors.Is(err, ercot.ErrConfiguration):
		return fmt.Errorf("%w (hint: set ERCOT_USERNAME, ERCOT_PASSWORD and ERCOT_SUBSCRIPTION_KEY)", err)
	}
	return err
}
