package servicedef

import (
	o "github.com/hostcontract/host-contract-tests/framework/opt"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

const (
	CommandLoadURL          = "loadURL"
	CommandOpenChildWindow  = "openChildWindow"
	CommandExecuteScript    = "executeScript"
	CommandGetPageInfo      = "getPageInfo"
	CommandRegisterScheme   = "registerScheme"
	CommandUnregisterScheme = "unregisterScheme"
	CommandCloseWindow      = "closeWindow"
)

type CommandParams struct {
	Command          string                          `json:"command"`
	LoadURL          o.Maybe[LoadURLParams]          `json:"loadURL,omitempty"`
	OpenChildWindow  o.Maybe[OpenChildWindowParams]  `json:"openChildWindow,omitempty"`
	ExecuteScript    o.Maybe[ExecuteScriptParams]    `json:"executeScript,omitempty"`
	RegisterScheme   o.Maybe[RegisterSchemeParams]   `json:"registerScheme,omitempty"`
	UnregisterScheme o.Maybe[UnregisterSchemeParams] `json:"unregisterScheme,omitempty"`
}

type LoadURLParams struct {
	URL string `json:"url"`
}

// OpenChildWindowParams asks the window's page to call window.open as if the user had clicked.
type OpenChildWindowParams struct {
	URL      string `json:"url"`
	Target   string `json:"target,omitempty"`
	Features string `json:"features,omitempty"`
}

type OpenChildWindowResponse struct {
	// Opened is false if the host blocked the new window.
	Opened bool `json:"opened"`
}

type ExecuteScriptParams struct {
	Script string `json:"script"`
}

type ExecuteScriptResponse struct {
	Result ldvalue.Value `json:"result"`
}

type PageInfoResponse struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	HistoryLength int    `json:"historyLength"`
}

type RegisterSchemeParams struct {
	Scheme string `json:"scheme"`

	// Privileged lets pages on the scheme use storage and other secure-context features.
	Privileged bool `json:"privileged"`

	// CallbackURI is where the service POSTs a SchemeRequest for every request to the scheme.
	CallbackURI string `json:"callbackUri"`
}

type UnregisterSchemeParams struct {
	Scheme string `json:"scheme"`
}
