package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hostcontract/host-contract-tests/framework"
	"github.com/hostcontract/host-contract-tests/framework/helpers"

	"golang.org/x/sync/errgroup"
)

const (
	httpListenerTimeout       = time.Second * 10
	defaultStatusQueryTimeout = time.Second * 10
	defaultCallbackHost       = "localhost"
)

// TestHarnessConfig describes how the harness reaches the host test service and how the
// service reaches the harness.
type TestHarnessConfig struct {
	// ServiceURL is the base URL of the host test service.
	ServiceURL string

	// CallbackHost is the hostname the host test service uses to reach the harness's callback
	// listener. Defaults to "localhost".
	CallbackHost string

	// CallbackPort is the port of the callback listener. Zero lets the OS pick one.
	CallbackPort int

	// FixtureListenHost and FixtureAliasHost are passed to every fixture server the harness starts.
	FixtureListenHost string
	FixtureAliasHost  string

	// StatusQueryTimeout is how long to keep polling the host test service at startup.
	StatusQueryTimeout time.Duration

	DebugLogger   framework.Logger
	StartupOutput io.Writer
}

// TestHarness manages communication with one host test service.
//
// On startup it verifies that the service is alive and starts its own callback listener. It can
// then create any number of windows within the service (NewTestServiceEntity), callback endpoints
// for the service to report to (NewCallbackEndpoint), and fixture servers for the service's
// windows to load pages from (NewFixtureServer).
//
// It contains no host-specific test logic; hosttests builds on it.
type TestHarness struct {
	config          TestHarnessConfig
	testServiceInfo TestServiceInfo
	endpoints       *callbackEndpointsManager
	server          *http.Server
	callbackPort    int
	logger          framework.Logger
}

// NewTestHarness creates a TestHarness. The status query to the host test service and the check
// that the callback listener is reachable run concurrently; if either fails, the listener is shut
// down again and the error is returned.
func NewTestHarness(config TestHarnessConfig) (*TestHarness, error) {
	if config.DebugLogger == nil {
		config.DebugLogger = framework.NullLogger()
	}
	if config.StartupOutput == nil {
		config.StartupOutput = io.Discard
	}
	if config.CallbackHost == "" {
		config.CallbackHost = defaultCallbackHost
	}
	if config.StatusQueryTimeout <= 0 {
		config.StatusQueryTimeout = defaultStatusQueryTimeout
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", config.CallbackPort))
	if err != nil {
		return nil, newSetupError(BindError, err, "could not start callback listener on port %d", config.CallbackPort)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	h := &TestHarness{
		config:       config,
		callbackPort: port,
		logger:       config.DebugLogger,
		endpoints: newCallbackEndpointsManager(
			"http://"+net.JoinHostPort(config.CallbackHost, strconv.Itoa(port)),
			config.DebugLogger,
		),
	}
	h.server = &http.Server{
		Handler:           http.HandlerFunc(h.serveHTTP),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Printf("Callback listener stopped unexpectedly: %s", err)
		}
	}()

	var g errgroup.Group
	g.Go(func() error {
		info, err := queryTestServiceInfo(config.ServiceURL, config.StatusQueryTimeout, config.StartupOutput)
		h.testServiceInfo = info
		return err
	})
	g.Go(func() error {
		return awaitListener(fmt.Sprintf("http://localhost:%d", port))
	})
	if err := g.Wait(); err != nil {
		_ = h.server.Close()
		return nil, err
	}
	return h, nil
}

// TestServiceInfo returns the status information received from the host test service.
func (h *TestHarness) TestServiceInfo() TestServiceInfo {
	return h.testServiceInfo
}

// CallbackPort returns the port of the callback listener.
func (h *TestHarness) CallbackPort() int {
	return h.callbackPort
}

// NewCallbackEndpoint adds a new endpoint that can receive requests from the host test service.
//
// The handler is called for all requests to the endpoint's base URL or any subpath of it. For
// instance, if BaseURL() is http://localhost:8111/endpoints/3, then it also receives requests to
// http://localhost:8111/endpoints/3/some/subpath; the handler sees only "/some/subpath". Each
// request's Context is cancelled if the endpoint is closed.
func (h *TestHarness) NewCallbackEndpoint(
	handler http.Handler,
	logger framework.Logger,
	options ...CallbackEndpointOption,
) *CallbackEndpoint {
	return h.endpoints.newEndpoint(handler, logger, options...)
}

// NewFixtureServer starts a fixture server with the listen and alias hosts from the harness
// configuration.
func (h *TestHarness) NewFixtureServer(routes RouteTable, logger framework.Logger) (*FixtureServer, error) {
	var options []FixtureServerOption
	if h.config.FixtureListenHost != "" {
		options = append(options, FixtureListenHost(h.config.FixtureListenHost))
	}
	if h.config.FixtureAliasHost != "" {
		options = append(options, FixtureAliasHost(h.config.FixtureAliasHost))
	}
	return StartFixtureServer(routes, logger, options...)
}

// Close shuts down the callback listener.
func (h *TestHarness) Close() error {
	return h.server.Close()
}

func (h *TestHarness) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK) // we use this to test whether our own listener is active yet
		return
	}
	h.endpoints.ServeHTTP(w, r)
}

// awaitListener waits till the server is definitely accepting requests.
func awaitListener(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), httpListenerTimeout)
	defer cancel()
	err := helpers.Poll(ctx, time.Millisecond*10, func(ctx context.Context) bool {
		_, _, err := doRequest(ctx, http.MethodHead, url, nil)
		return err == nil
	})
	if err != nil {
		return fmt.Errorf("could not detect own listener at %s: %w", url, err)
	}
	return nil
}
