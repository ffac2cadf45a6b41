package sqlstmt

import (
	"context"
	"errors"
)

// ShutdownWithContext runs shutdownFunc and, if ctx ends before it returns,
// falls back to forceCloseFunc.
func ShutdownWithContext(ctx context.Context, shutdownFunc func(ctx context.Context) error,
	forceCloseFunc func() error) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- shutdownFunc(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		err := ctx.Err()

		if forceCloseFunc != nil {
			err = errors.Join(err, forceCloseFunc())
		}

		return err
	}
}
