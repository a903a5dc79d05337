package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Poll calls check right away and then once per interval until it returns true. It returns an
// error wrapping ErrTimedOut if the context's deadline passes first, or the context's error if it
// is cancelled.
func Poll(ctx context.Context, interval time.Duration, check func(context.Context) bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if check(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimedOut
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RequireEventually polls on the calling goroutine until check returns true, and fails and
// terminates the test if that takes longer than timeout. It does not use testify's Eventually,
// because ldtest.T.FailNow panics to exit a test and that must not happen on another goroutine.
func RequireEventually(
	t TestContext,
	timeout time.Duration,
	interval time.Duration,
	check func() bool,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := Poll(ctx, interval, func(context.Context) bool { return check() }); err != nil {
		t.Errorf("%s (%s)", fmt.Sprintf(failureMsgFormat, failureMsgArgs...), err)
		t.FailNow()
	}
}
