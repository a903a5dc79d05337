package hosttests

import (
	"fmt"
	"strings"
	"time"

	"github.com/hostcontract/host-contract-tests/framework/harness"
	"github.com/hostcontract/host-contract-tests/framework/helpers"
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	o "github.com/hostcontract/host-contract-tests/framework/opt"
	"github.com/hostcontract/host-contract-tests/mockhost"
	"github.com/hostcontract/host-contract-tests/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/stretchr/testify/require"
)

// WindowOption is an option for NewWindow.
type WindowOption helpers.ConfigOption[servicedef.CreateWindowParams]

// WithContentView sets the web content options for the window.
func WithContentView(options servicedef.ContentViewOptions) WindowOption {
	return helpers.ConfigOptionFunc[servicedef.CreateWindowParams](func(p *servicedef.CreateWindowParams) error {
		p.ContentView = o.Some(options)
		return nil
	})
}

// WithPartition puts the window's storage in a named partition, keeping any other content view
// options.
func WithPartition(partition string) WindowOption {
	return helpers.ConfigOptionFunc[servicedef.CreateWindowParams](func(p *servicedef.CreateWindowParams) error {
		options := p.ContentView.Value()
		options.Partition = partition
		p.ContentView = o.Some(options)
		return nil
	})
}

// Window represents a browser window in the host test service which can be controlled by test
// logic. Everything the host reports about the window, and about any window it opens, arrives
// as HostEvents.
type Window struct {
	entity   *harness.TestServiceEntity
	events   *mockhost.HostEventService
	endpoint *harness.CallbackEndpoint
}

// NewWindow tells the host test service to create a window.
//
// The first parameter should be the current test scope. Any error in creating the window will
// cause the test to fail and terminate immediately. The window is closed when this test scope
// exits, and can be reused by subtests until then.
func NewWindow(t *ldtest.T, options ...WindowOption) *Window {
	h := requireContext(t).harness
	events := mockhost.NewHostEventService(t.DebugLogger())
	endpoint := h.NewCallbackEndpoint(events, t.DebugLogger(), harness.CallbackEndpointDescription("host events"))
	t.Defer(endpoint.Close)

	params := servicedef.CreateWindowParams{
		Tag:         t.ID().String(),
		CallbackURI: endpoint.BaseURL(),
	}
	require.NoError(t, helpers.ApplyOptions(&params, options...))

	entity, err := h.NewTestServiceEntity(params, "window", t.DebugLogger())
	require.NoError(t, err)
	t.Defer(func() { _ = entity.Close() })

	return &Window{entity: entity, events: events, endpoint: endpoint}
}

func (w *Window) sendCommand(t *ldtest.T, params servicedef.CommandParams, responseOut interface{}) {
	require.NoError(t, w.entity.SendCommandWithParams(params, t.DebugLogger(), responseOut))
}

// LoadURL tells the window to navigate. It returns as soon as the host has accepted the command;
// use RequireEvent to wait for the load to finish.
func (w *Window) LoadURL(t *ldtest.T, url string) {
	w.sendCommand(t, servicedef.CommandParams{
		Command: servicedef.CommandLoadURL,
		LoadURL: o.Some(servicedef.LoadURLParams{URL: url}),
	}, nil)
}

// OpenChildWindow asks the page in the window to call window.open. It returns false if the host
// blocked the new window.
func (w *Window) OpenChildWindow(t *ldtest.T, params servicedef.OpenChildWindowParams) bool {
	var resp servicedef.OpenChildWindowResponse
	w.sendCommand(t, servicedef.CommandParams{
		Command:         servicedef.CommandOpenChildWindow,
		OpenChildWindow: o.Some(params),
	}, &resp)
	return resp.Opened
}

// ExecuteScript runs a script in the page and returns its result.
func (w *Window) ExecuteScript(t *ldtest.T, script string) ldvalue.Value {
	var resp servicedef.ExecuteScriptResponse
	w.sendCommand(t, servicedef.CommandParams{
		Command:       servicedef.CommandExecuteScript,
		ExecuteScript: o.Some(servicedef.ExecuteScriptParams{Script: script}),
	}, &resp)
	return resp.Result
}

// PageInfo returns the title, URL, and history length of the page.
func (w *Window) PageInfo(t *ldtest.T) servicedef.PageInfoResponse {
	var resp servicedef.PageInfoResponse
	w.sendCommand(t, servicedef.CommandParams{Command: servicedef.CommandGetPageInfo}, &resp)
	return resp
}

// RegisterScheme makes the host serve a custom URL scheme from the route table, through a
// callback endpoint that lasts until the test scope exits.
func (w *Window) RegisterScheme(
	t *ldtest.T,
	scheme string,
	privileged bool,
	routes harness.RouteTable,
) *mockhost.SchemeService {
	service := mockhost.NewSchemeService(scheme, routes, t.DebugLogger())
	endpoint := requireContext(t).harness.NewCallbackEndpoint(service, t.DebugLogger(),
		harness.CallbackEndpointDescription("scheme "+scheme))
	t.Defer(endpoint.Close)

	w.sendCommand(t, servicedef.CommandParams{
		Command: servicedef.CommandRegisterScheme,
		RegisterScheme: o.Some(servicedef.RegisterSchemeParams{
			Scheme:      scheme,
			Privileged:  privileged,
			CallbackURI: endpoint.BaseURL(),
		}),
	}, nil)
	return service
}

// UnregisterScheme tells the host to stop serving a custom URL scheme.
func (w *Window) UnregisterScheme(t *ldtest.T, scheme string) {
	w.sendCommand(t, servicedef.CommandParams{
		Command:          servicedef.CommandUnregisterScheme,
		UnregisterScheme: o.Some(servicedef.UnregisterSchemeParams{Scheme: scheme}),
	}, nil)
}

// CloseWindow asks the page to close its own window, as opposed to the harness disposing of it.
func (w *Window) CloseWindow(t *ldtest.T) {
	w.sendCommand(t, servicedef.CommandParams{Command: servicedef.CommandCloseWindow}, nil)
}

// RequireEvent waits for the next host event of the given kind and checks it against the
// matchers. Events of other kinds that arrive first are discarded.
func (w *Window) RequireEvent(
	t helpers.TestContext,
	kind string,
	timeout time.Duration,
	matchers ...m.Matcher,
) servicedef.HostEvent {
	t.Helper()
	event, skipped, ok := w.events.AwaitEvent(kind, timeout)
	if !ok {
		t.Errorf("timed out waiting for %q host event; other events received: %s", kind, describeEvents(skipped))
		t.FailNow()
	}
	if len(matchers) != 0 {
		m.In(t).Require(event, m.AllOf(matchers...))
	}
	return event
}

// RequireEventsThrough collects host events until one of the given kind arrives, and returns all of
// them including that one.
func (w *Window) RequireEventsThrough(t helpers.TestContext, kind string, timeout time.Duration) []servicedef.HostEvent {
	t.Helper()
	event, skipped, ok := w.events.AwaitEvent(kind, timeout)
	if !ok {
		t.Errorf("timed out waiting for %q host event; other events received: %s", kind, describeEvents(skipped))
		t.FailNow()
	}
	return append(skipped, event)
}

// RequireNoEvent fails the test if a host event of the given kind arrives within the timeout.
func (w *Window) RequireNoEvent(t helpers.TestContext, kind string, timeout time.Duration) {
	t.Helper()
	if event, _, ok := w.events.AwaitEvent(kind, timeout); ok {
		t.Errorf("did not expect %q host event, but got one for %s", kind, event.URL)
		t.FailNow()
	}
}

func describeEvents(events []servicedef.HostEvent) string {
	if len(events) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, fmt.Sprintf("%s(%s)", e.Kind, e.URL))
	}
	return strings.Join(parts, ", ")
}
