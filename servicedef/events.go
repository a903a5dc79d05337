package servicedef

import "github.com/launchdarkly/go-sdk-common/v3/ldvalue"

const (
	HostEventNavigationStarted  = "navigationStarted"
	HostEventRedirect           = "redirect"
	HostEventLoadFinished       = "loadFinished"
	HostEventLoadFailed         = "loadFailed"
	HostEventChildWindowCreated = "childWindowCreated"
	HostEventWindowClosed       = "windowClosed"
	HostEventConsoleMessage     = "consoleMessage"
)

// HostEvent is POSTed by the host test service to a window's CallbackURI whenever something
// happens in that window. Data holds event-specific properties, such as "target" for
// childWindowCreated or "from" for redirect.
type HostEvent struct {
	Kind string        `json:"kind"`
	URL  string        `json:"url"`
	Data ldvalue.Value `json:"data,omitempty"`
}

// SchemeRequest is POSTed by the host test service to a scheme's CallbackURI for every request
// that a page makes to the registered scheme.
type SchemeRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}

// SchemeResponse is the harness's answer to a SchemeRequest. Body is base64 in JSON.
type SchemeResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}
