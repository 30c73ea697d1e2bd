// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	domainerrors "notekeeper/internal/domain/errors"

	"github.com/pkg/errors"
)

// callStore runs fn under the store timeout. A call that runs out of time is
// reported as ErrUnavailable so the client knows it may retry.
func callStore[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	storeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := fn(storeCtx)
	if err != nil && isDeadline(storeCtx, err) {
		return result, errors.Wrapf(domainerrors.ErrUnavailable, "store call timed out: %v", err)
	}

	return result, err
}

// execStore is callStore for calls without a result.
func execStore(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	_, err := callStore(ctx, timeout, func(storeCtx context.Context) (struct{}, error) {
		return struct{}{}, fn(storeCtx)
	})

	return err
}

func isDeadline(storeCtx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(storeCtx.Err(), context.DeadlineExceeded)
}

// storeFailure turns an unexpected store error into Unavailable or Internal and logs the cause.
func storeFailure(logger *slog.Logger, err error, message string) error {
	if errors.Is(err, domainerrors.ErrUnavailable) {
		logger.Warn(message, slog.Any("error", err))

		return errors.Wrap(err, message)
	}

	logger.Error(message, slog.Any("error", err))

	return errors.Wrap(domainerrors.ErrInternalError, message)
}
