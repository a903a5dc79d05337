package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hostcontract/host-contract-tests/framework"
	"github.com/hostcontract/host-contract-tests/framework/helpers"

	"github.com/gorilla/mux"
)

const endpointPathPrefix = "/endpoints/"

type callbackEndpointsManager struct {
	endpoints       map[string]*CallbackEndpoint
	lastEndpointID  int
	externalBaseURL string
	router          *mux.Router
	logger          framework.Logger
	lock            sync.Mutex
}

// CallbackEndpoint is a URL on the harness's own listener that the host test service sends
// requests to: host events for a window, or requests to a custom URL scheme.
type CallbackEndpoint struct {
	owner       *callbackEndpointsManager
	id          string
	description string
	basePath    string
	handler     http.Handler
	requests    *requestLog
	ctx         context.Context
	cancel      context.CancelFunc
	logger      framework.Logger
	closing     sync.Once
}

type callbackEndpointConfig struct {
	description string
}

// CallbackEndpointOption configures NewCallbackEndpoint.
type CallbackEndpointOption helpers.ConfigOption[callbackEndpointConfig]

// CallbackEndpointDescription sets the name used for the endpoint in log and failure messages.
func CallbackEndpointDescription(description string) CallbackEndpointOption {
	return helpers.ConfigOptionFunc[callbackEndpointConfig](func(c *callbackEndpointConfig) error {
		c.description = description
		return nil
	})
}

func newCallbackEndpointsManager(externalBaseURL string, logger framework.Logger) *callbackEndpointsManager {
	m := &callbackEndpointsManager{
		endpoints:       make(map[string]*CallbackEndpoint),
		externalBaseURL: strings.TrimSuffix(externalBaseURL, "/"),
		logger:          logger,
	}
	m.router = mux.NewRouter().SkipClean(true)
	m.router.PathPrefix(endpointPathPrefix + "{id}").HandlerFunc(m.serveEndpoint)
	m.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.logger.Printf("Received request for unrecognized URL path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})
	return m
}

func (m *callbackEndpointsManager) newEndpoint(
	handler http.Handler,
	logger framework.Logger,
	options ...CallbackEndpointOption,
) *CallbackEndpoint {
	if logger == nil {
		logger = m.logger
	}
	var config callbackEndpointConfig
	_ = helpers.ApplyOptions(&config, options...)

	ctx, cancel := context.WithCancel(context.Background())
	e := &CallbackEndpoint{
		owner:       m,
		description: config.description,
		handler:     handler,
		requests:    newRequestLog(),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
	m.lock.Lock()
	m.lastEndpointID++
	e.id = strconv.Itoa(m.lastEndpointID)
	e.basePath = endpointPathPrefix + e.id
	m.endpoints[e.id] = e
	m.lock.Unlock()
	if e.description == "" {
		e.description = "endpoint " + e.id
	}
	return e
}

func (m *callbackEndpointsManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

func (m *callbackEndpointsManager) serveEndpoint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m.lock.Lock()
	e := m.endpoints[id]
	m.lock.Unlock()
	if e == nil {
		m.logger.Printf("Received request for unrecognized or closed endpoint %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	subpath := strings.TrimPrefix(r.URL.Path, e.basePath)
	if subpath == "" {
		subpath = "/"
	}

	var body []byte
	if r.Body != nil {
		data, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			m.logger.Printf("Unexpected error trying to read request body: %s", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = data
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	transformedURL := *r.URL
	transformedURL.Path = subpath
	transformedReq := r.WithContext(ctx)
	transformedReq.URL = &transformedURL
	transformedReq.Body = io.NopCloser(bytes.NewReader(body))

	e.requests.add(IncomingRequestInfo{
		Method:  r.Method,
		URL:     transformedURL,
		Host:    r.Host,
		Headers: r.Header.Clone(),
		Body:    body,
		Matched: true,
		Time:    time.Now(),
	})

	e.handler.ServeHTTP(w, transformedReq)
}

// BaseURL returns the URL that the host test service should send requests to. The endpoint
// also receives requests for any subpath of it.
func (e *CallbackEndpoint) BaseURL() string {
	return e.owner.externalBaseURL + e.basePath
}

// Description returns the endpoint's name for log and failure messages.
func (e *CallbackEndpoint) Description() string { return e.description }

// AwaitRequest waits for the next request to the endpoint.
func (e *CallbackEndpoint) AwaitRequest(timeout time.Duration) (IncomingRequestInfo, error) {
	return e.requests.take(nil, timeout, fmt.Sprintf("a request to %q (%s)", e.description, e.basePath))
}

// RequireRequest waits for the next request to the endpoint, and fails and terminates the test
// if it timed out.
func (e *CallbackEndpoint) RequireRequest(t helpers.TestContext, timeout time.Duration) IncomingRequestInfo {
	t.Helper()
	info, err := e.AwaitRequest(timeout)
	if err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
	return info
}

// Close unregisters the endpoint; later requests to it get a 404. It also cancels the context of
// every request to it that is still in progress.
func (e *CallbackEndpoint) Close() {
	e.closing.Do(func() {
		e.logger.Printf("Closing endpoint %q (%s)", e.description, e.basePath)
		e.owner.lock.Lock()
		delete(e.owner.endpoints, e.id)
		e.owner.lock.Unlock()
		e.cancel()
		e.requests.close()
	})
}
