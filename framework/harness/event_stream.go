package harness

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/hostcontract/host-contract-tests/framework"

	"github.com/launchdarkly/eventsource"
)

const eventStreamChannel = "fixture"

// StreamEvent is one server-sent event.
type StreamEvent struct {
	ID      string
	Name    string
	Payload string
}

func (e StreamEvent) Id() string    { return e.ID } //nolint:revive,stylecheck // required by eventsource.Event
func (e StreamEvent) Event() string { return e.Name }
func (e StreamEvent) Data() string  { return e.Payload }

// EventStream serves text/event-stream responses. Every new connection first receives the
// initial events; Publish sends further events to everyone connected.
type EventStream struct {
	initial []StreamEvent
	server  *eventsource.Server
	nextID  int
	lock    sync.Mutex
	closing sync.Once
}

// NewEventStream creates an EventStream. Cross-origin requests are allowed, since fixture pages
// often live on the alias host.
func NewEventStream(logger framework.Logger, initial ...StreamEvent) *EventStream {
	if logger == nil {
		logger = framework.NullLogger()
	}
	s := &EventStream{initial: initial, server: eventsource.NewServer()}
	s.server.ReplayAll = true
	s.server.AllowCORS = true
	s.server.Logger = logger
	s.server.Register(eventStreamChannel, s)
	return s
}

// EventStreamRoute returns a route served by the EventStream. The stream is closed along with
// the fixture server.
func EventStreamRoute(stream *EventStream) Route {
	return Route{eventStream: stream}
}

// Publish sends an event with the next sequential ID to all connected clients.
func (s *EventStream) Publish(name, data string) {
	s.lock.Lock()
	s.nextID++
	event := StreamEvent{ID: strconv.Itoa(s.nextID), Name: name, Payload: data}
	s.lock.Unlock()
	s.server.Publish([]string{eventStreamChannel}, event)
}

// Replay implements eventsource.Repository.
func (s *EventStream) Replay(channel, id string) chan eventsource.Event {
	ch := make(chan eventsource.Event, len(s.initial))
	for _, e := range s.initial {
		ch <- e
	}
	close(ch)
	return ch
}

func (s *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler(eventStreamChannel)(w, r)
}

// Close disconnects all clients. Calls after the first do nothing.
func (s *EventStream) Close() {
	s.closing.Do(s.server.Close)
}
