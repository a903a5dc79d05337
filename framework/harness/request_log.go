package harness

import (
	"fmt"
	"sync"
	"time"

	"github.com/hostcontract/host-contract-tests/framework/helpers"
)

// requestLog keeps every request a server received. Consumers take requests in arrival order;
// a request taken by one consumer is not seen by the next, but a consumer waiting for one path
// leaves requests to other paths alone.
type requestLog struct {
	items   []IncomingRequestInfo
	taken   []bool
	changed chan struct{}
	closed  bool
	lock    sync.Mutex
}

func newRequestLog() *requestLog {
	return &requestLog{changed: make(chan struct{})}
}

func (l *requestLog) add(info IncomingRequestInfo) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return
	}
	l.items = append(l.items, info)
	l.taken = append(l.taken, false)
	close(l.changed)
	l.changed = make(chan struct{})
}

func (l *requestLog) close() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.closed {
		l.closed = true
		close(l.changed)
	}
}

func (l *requestLog) all() []IncomingRequestInfo {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]IncomingRequestInfo(nil), l.items...)
}

func (l *requestLog) take(
	filter func(IncomingRequestInfo) bool,
	timeout time.Duration,
	description string,
) (IncomingRequestInfo, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		l.lock.Lock()
		for i, info := range l.items {
			if !l.taken[i] && (filter == nil || filter(info)) {
				l.taken[i] = true
				l.lock.Unlock()
				return info, nil
			}
		}
		changed, closed := l.changed, l.closed
		l.lock.Unlock()

		if closed {
			return IncomingRequestInfo{}, fmt.Errorf("server closed while waiting for %s", description)
		}
		select {
		case <-changed:
		case <-deadline.C:
			return IncomingRequestInfo{}, fmt.Errorf("%w waiting for %s", helpers.ErrTimedOut, description)
		}
	}
}
