package servicedef

import (
	o "github.com/hostcontract/host-contract-tests/framework/opt"
)

const (
	CapabilityWindowOpen           = "window-open"
	CapabilityCrossOriginMessaging = "cross-origin-messaging"
	CapabilityEventStream          = "event-stream"
	CapabilityStorageIsolation     = "storage-isolation"
	CapabilityWorkerPrivileges     = "worker-privileges"
	CapabilityFontFallback         = "font-fallback"
	CapabilityRedirects            = "redirects"
	CapabilityWebSocket            = "websocket"
	CapabilityPageInfo             = "page-info"
	CapabilityCustomSchemes        = "custom-schemes"
)

// CreateWindowParams is the body of the request that asks the host test service to open a window.
type CreateWindowParams struct {
	// Tag identifies the window in the service's log output.
	Tag string `json:"tag"`

	// Show asks for a visible window. Tests normally run with hidden windows.
	Show bool `json:"show"`

	// ContentView configures the web content of the window. If omitted, the host's defaults apply.
	ContentView o.Maybe[ContentViewOptions] `json:"contentView,omitempty"`

	// CallbackURI is where the service POSTs HostEvents for this window and any window it opens.
	CallbackURI string `json:"callbackUri"`
}

// ContentViewOptions are the per-window settings that decide what web content may do.
type ContentViewOptions struct {
	JavaScript       o.Maybe[bool] `json:"javascript,omitempty"`
	Storage          o.Maybe[bool] `json:"storage,omitempty"`
	ContextIsolation o.Maybe[bool] `json:"contextIsolation,omitempty"`
	Sandbox          bool          `json:"sandbox"`
	Plugins          bool          `json:"plugins"`

	// Partition names a storage partition. Windows with different partitions share no storage.
	Partition string `json:"partition,omitempty"`

	// WorkerHostIntegration gives workers access to the host's native integration APIs.
	WorkerHostIntegration bool `json:"workerHostIntegration"`
}
