package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/hostcontract/host-contract-tests/framework"
	"github.com/hostcontract/host-contract-tests/framework/helpers"

	"github.com/gorilla/mux"
)

const (
	defaultFixtureListenHost = "127.0.0.1"
	defaultFixtureAliasHost  = "localhost"
	readHeaderTimeout        = 10 * time.Second // arbitrary but non-infinite, to avoid Slowloris
)

var errServerClosed = errors.New("fixture server closed")

// ServerState is the lifecycle state of a FixtureServer. StartFixtureServer only returns a
// server that is already listening, so State reports StateListening or StateClosed. StateStopped
// is the zero value, describing a server that was never started.
type ServerState int

const (
	StateStopped ServerState = iota
	StateListening
	StateClosed
)

func (s ServerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "ServerState(" + strconv.Itoa(int(s)) + ")"
	}
}

// FixtureServer is a short-lived HTTP server on an OS-assigned loopback port that answers
// requests from a RouteTable. It belongs to a single test scope, which must Close it.
//
// Every request is recorded, so that a test can wait for a page to fetch something or to post a
// report back.
type FixtureServer struct {
	routes   RouteTable
	router   *mux.Router
	server   *http.Server
	port     int
	baseURL  string
	aliasURL string
	requests *requestLog
	logger   framework.Logger
	state    ServerState
	done     chan struct{}
	served   chan struct{}
	closeErr error
	lock     sync.Mutex
	closing  sync.Once
}

type fixtureServerConfig struct {
	listenHost string
	aliasHost  string
}

// FixtureServerOption configures StartFixtureServer.
type FixtureServerOption helpers.ConfigOption[fixtureServerConfig]

// FixtureListenHost sets the loopback address to bind. The port is always assigned by the OS.
func FixtureListenHost(host string) FixtureServerOption {
	return helpers.ConfigOptionFunc[fixtureServerConfig](func(c *fixtureServerConfig) error {
		c.listenHost = host
		return nil
	})
}

// FixtureAliasHost sets the second hostname that resolves to the same server. Redirect routes
// point at it, and pages use it as a different origin.
func FixtureAliasHost(host string) FixtureServerOption {
	return helpers.ConfigOptionFunc[fixtureServerConfig](func(c *fixtureServerConfig) error {
		c.aliasHost = host
		return nil
	})
}

// StartFixtureServer validates the routes, binds port 0 on the loopback interface, and starts
// serving. It returns once the listener exists, so the URL can be used immediately.
//
// Errors are always a *SetupError: InvalidRoutes for a bad table, BindError if no port could be
// allocated. There are no retries.
func StartFixtureServer(
	routes RouteTable,
	logger framework.Logger,
	options ...FixtureServerOption,
) (*FixtureServer, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	config := fixtureServerConfig{listenHost: defaultFixtureListenHost, aliasHost: defaultFixtureAliasHost}
	if err := helpers.ApplyOptions(&config, options...); err != nil {
		return nil, newSetupError(InvalidRoutes, err, "invalid fixture server option")
	}
	if err := routes.Validate(); err != nil {
		return nil, newSetupError(InvalidRoutes, err, "invalid route table")
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(config.listenHost, "0"))
	if err != nil {
		return nil, newSetupError(BindError, err, "could not allocate a port on %s", config.listenHost)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	s := &FixtureServer{
		routes:   routes,
		port:     port,
		baseURL:  "http://" + net.JoinHostPort(config.listenHost, strconv.Itoa(port)),
		aliasURL: "http://" + net.JoinHostPort(config.aliasHost, strconv.Itoa(port)),
		requests: newRequestLog(),
		logger:   framework.LoggerWithPrefix(logger, fmt.Sprintf("[fixture :%d] ", port)),
		done:     make(chan struct{}),
		served:   make(chan struct{}),
	}
	s.router = routes.buildRouter(routeContext{
		baseURL:      s.baseURL,
		aliasBaseURL: s.aliasURL,
		done:         s.done,
		logger:       s.logger,
	})
	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.state = StateListening

	go func() {
		defer close(s.served)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Server stopped unexpectedly: %s", err)
		}
	}()

	s.logger.Printf("Listening at %s (alias %s) with routes %v", s.baseURL, s.aliasURL, routes.Paths())
	return s, nil
}

// URL returns the base URL of the server, with no trailing slash.
func (s *FixtureServer) URL() string { return s.baseURL }

// AliasURL returns the base URL of the same server under its alias hostname.
func (s *FixtureServer) AliasURL() string { return s.aliasURL }

// Port returns the port the OS assigned.
func (s *FixtureServer) Port() int { return s.port }

// Routes returns the installed route paths in sorted order.
func (s *FixtureServer) Routes() []string { return s.routes.Paths() }

// State returns the current lifecycle state.
func (s *FixtureServer) State() ServerState {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// Close stops accepting connections, aborts any requests still in flight, and releases the
// port. It is safe to call more than once; only the first call does anything.
func (s *FixtureServer) Close() error {
	s.closing.Do(func() {
		s.lock.Lock()
		s.state = StateClosed
		s.lock.Unlock()

		s.closeErr = s.server.Close()
		close(s.done)
		for _, stream := range s.routes.eventStreams() {
			stream.Close()
		}
		<-s.served
		s.requests.close()
		s.logger.Printf("Closed after %d request(s)", len(s.requests.all()))
	})
	return s.closeErr
}

// ServeHTTP records the request and dispatches it to its route.
func (s *FixtureServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		data, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			s.logger.Printf("Unexpected error reading request body: %s", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = data
		r.Body = io.NopCloser(bytes.NewReader(data))
	}

	var match mux.RouteMatch
	matched := s.router.Match(r, &match) && match.MatchErr == nil

	s.logger.Printf("%s %s (host %s)", r.Method, r.URL.RequestURI(), r.Host)
	s.requests.add(IncomingRequestInfo{
		Method:  r.Method,
		URL:     *r.URL,
		Host:    r.Host,
		Headers: r.Header.Clone(),
		Body:    body,
		Matched: matched,
		Time:    time.Now(),
	})

	s.router.ServeHTTP(w, r)
}

// Requests returns every request received so far, in order.
func (s *FixtureServer) Requests() []IncomingRequestInfo {
	return s.requests.all()
}

// AwaitRequest waits for the next request that has not already been returned by one of the
// Await or Require methods.
func (s *FixtureServer) AwaitRequest(timeout time.Duration) (IncomingRequestInfo, error) {
	return s.requests.take(nil, timeout, "any request to "+s.baseURL)
}

// AwaitRequestTo is AwaitRequest for one path only; requests to other paths stay available.
func (s *FixtureServer) AwaitRequestTo(requestPath string, timeout time.Duration) (IncomingRequestInfo, error) {
	return s.requests.take(pathIs(requestPath), timeout, fmt.Sprintf("a request to %s%s", s.baseURL, requestPath))
}

// RequireRequest is AwaitRequest that fails and terminates the test on timeout.
func (s *FixtureServer) RequireRequest(t helpers.TestContext, timeout time.Duration) IncomingRequestInfo {
	t.Helper()
	info, err := s.AwaitRequest(timeout)
	if err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
	return info
}

// RequireRequestTo is AwaitRequestTo that fails and terminates the test on timeout.
func (s *FixtureServer) RequireRequestTo(
	t helpers.TestContext,
	requestPath string,
	timeout time.Duration,
) IncomingRequestInfo {
	t.Helper()
	info, err := s.AwaitRequestTo(requestPath, timeout)
	if err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
	return info
}

// RequireNoMoreRequests fails and terminates the test if any further request arrives within the
// timeout.
func (s *FixtureServer) RequireNoMoreRequests(t helpers.TestContext, timeout time.Duration) {
	t.Helper()
	if info, err := s.AwaitRequest(timeout); err == nil {
		t.Errorf("did not expect another request, but got %s %s", info.Method, info.URL.String())
		t.FailNow()
	}
}

// RequireNoMoreRequestsTo fails and terminates the test if another request to the path arrives
// within the timeout.
func (s *FixtureServer) RequireNoMoreRequestsTo(t helpers.TestContext, requestPath string, timeout time.Duration) {
	t.Helper()
	if info, err := s.AwaitRequestTo(requestPath, timeout); err == nil {
		t.Errorf("did not expect another request to %s, but got %s %s", requestPath, info.Method, info.URL.String())
		t.FailNow()
	}
}

// IncomingRequestInfo is a request received by a fixture server or callback endpoint.
type IncomingRequestInfo struct {
	Method  string
	URL     url.URL
	Host    string
	Headers http.Header
	Body    []byte

	// Matched is false if the path was not in the route table and got the empty fallback response.
	Matched bool

	Time time.Time
}

func pathIs(requestPath string) func(IncomingRequestInfo) bool {
	return func(info IncomingRequestInfo) bool { return info.URL.Path == requestPath }
}
