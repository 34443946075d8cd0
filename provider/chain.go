package provider

import (
	"context"
	"errors"
	"fmt"

	"go-termgps/nav"
)

// Chain tries each locator in order and returns the first fix obtained,
// so a precise source can be preferred over a coarse fallback.
type Chain []Locator

// Locate returns the first successful fix, or all errors joined.
func (c Chain) Locate(ctx context.Context) (nav.Fix, error) {
	if len(c) == 0 {
		return nav.Fix{}, ErrNoLocator
	}

	var errs []error
	for i, l := range c {
		fix, err := l.Locate(ctx)
		if err == nil {
			return fix, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nav.Fix{}, ctxErr
		}
		errs = append(errs, fmt.Errorf("locator %d: %w", i, err))
	}
	return nav.Fix{}, errors.Join(errs...)
}
