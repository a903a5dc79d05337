package mockhost

import (
	"encoding/json"
	"time"

	"github.com/hostcontract/host-contract-tests/framework"
	"github.com/hostcontract/host-contract-tests/framework/helpers"
	"github.com/hostcontract/host-contract-tests/servicedef"
)

const hostEventBufferSize = 100

// HostEventService receives the HostEvents that the host test service posts for one window and
// everything it opens.
type HostEventService struct {
	*callbackService
	events chan servicedef.HostEvent
}

// NewHostEventService creates a HostEventService. Events are buffered; if a test never reads them
// and the buffer fills up, later events are logged and dropped.
func NewHostEventService(logger framework.Logger) *HostEventService {
	s := &HostEventService{
		callbackService: newCallbackService(logger, "host events"),
		events:          make(chan servicedef.HostEvent, hostEventBufferSize),
	}
	s.addPath("/", func(d *json.Decoder) (interface{}, error) {
		var event servicedef.HostEvent
		if err := d.Decode(&event); err != nil {
			return nil, err
		}
		if !helpers.NonBlockingSend(s.events, event) {
			s.logger.Printf("[%s] dropped %q event because the buffer is full", s.name, event.Kind)
		}
		return nil, nil
	})
	return s
}

// Events returns the channel of received events, in the order they arrived.
func (s *HostEventService) Events() <-chan servicedef.HostEvent {
	return s.events
}

// AwaitEvent waits for the next event of the given kind. Events of other kinds that arrive first
// are returned in skipped.
func (s *HostEventService) AwaitEvent(
	kind string,
	timeout time.Duration,
) (event servicedef.HostEvent, skipped []servicedef.HostEvent, ok bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case e := <-s.events:
			if e.Kind == kind {
				return e, skipped, true
			}
			skipped = append(skipped, e)
		case <-deadline.C:
			return servicedef.HostEvent{}, skipped, false
		}
	}
}
