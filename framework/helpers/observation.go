package helpers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

// ErrTimedOut is wrapped by the errors returned when an awaited value does not arrive in time.
var ErrTimedOut = errors.New("timed out")

// Observation is a completion signal for one asynchronous event that a test expects, such as a
// message posted by a page or a navigation reported by the host. The first Resolve wins; any
// later ones are only counted, so a test can assert that the event did not happen twice.
type Observation[V any] struct {
	description string
	done        chan struct{}
	value       V
	extra       int
	lock        sync.Mutex
}

// NewObservation creates an unresolved Observation. The description is used in failure messages.
func NewObservation[V any](description string) *Observation[V] {
	return &Observation[V]{description: description, done: make(chan struct{})}
}

// Resolve supplies the observed value. It returns false if the Observation was already resolved,
// in which case the value is discarded.
func (o *Observation[V]) Resolve(value V) bool {
	o.lock.Lock()
	defer o.lock.Unlock()
	select {
	case <-o.done:
		o.extra++
		return false
	default:
		o.value = value
		close(o.done)
		return true
	}
}

// Done returns a channel that is closed once the Observation is resolved.
func (o *Observation[V]) Done() <-chan struct{} { return o.done }

// Await waits up to timeout for the value.
func (o *Observation[V]) Await(timeout time.Duration) (V, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return o.AwaitContext(ctx)
}

// AwaitContext waits for the value until the context ends.
func (o *Observation[V]) AwaitContext(ctx context.Context) (V, error) {
	select {
	case <-o.done:
		o.lock.Lock()
		defer o.lock.Unlock()
		return o.value, nil
	case <-ctx.Done():
		var empty V
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return empty, fmt.Errorf("%w waiting for %s", ErrTimedOut, o.description)
		}
		return empty, fmt.Errorf("stopped waiting for %s: %w", o.description, ctx.Err())
	}
}

// Require waits for the value and checks it against the matchers, failing and terminating the
// test if it timed out or did not match.
func (o *Observation[V]) Require(t TestContext, timeout time.Duration, matchers ...m.Matcher) V {
	t.Helper()
	value, err := o.Await(timeout)
	if err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
	if len(matchers) != 0 {
		m.In(t).Require(value, m.AllOf(matchers...))
	}
	return value
}

// ExtraCount returns the number of Resolve calls after the first.
func (o *Observation[V]) ExtraCount() int {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.extra
}

// RequireNoExtra waits for the given interval and then fails the test if the event was observed
// more than once.
func (o *Observation[V]) RequireNoExtra(t TestContext, wait time.Duration) {
	t.Helper()
	time.Sleep(wait)
	if n := o.ExtraCount(); n != 0 {
		t.Errorf("expected %s to happen once, but it happened %d more time(s)", o.description, n)
		t.FailNow()
	}
}
