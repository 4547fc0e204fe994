package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/errors"
)

// WithTimeout runs fn under a deadline of timeout. fn must honour ctx; the
// call returns when fn does. A deadline failure wraps both
// context.DeadlineExceeded and errors.ErrTimeout and is labelled with name.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(tctx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: cancelled: %w", name, err)
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s: exceeded %v: %w", name, timeout, errors.Join(apperrors.ErrTimeout, err))
	default:
		return err
	}
}
