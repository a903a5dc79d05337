package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/hostcontract/host-contract-tests/framework"

	"github.com/gorilla/mux"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// RouteTable maps exact URL paths to the responses a fixture server gives for them. Paths not in
// the table get an empty 200 response.
type RouteTable map[string]Route

// Route describes the response for one path. Use the constructor functions (Literal, HTML, File,
// Redirect, ...) rather than filling in the fields directly.
type Route struct {
	status      int
	headers     http.Header
	body        []byte
	filePath    string
	fileSystem  fs.FS
	redirectTo  string
	crossHost   bool
	handler     http.Handler
	webSocket   WebSocketHandler
	eventStream *EventStream
	delay       time.Duration
	buildErr    error
}

// Literal returns a route that answers with status 200 and the given body.
func Literal(body string) Route {
	return Route{status: http.StatusOK, body: []byte(body)}
}

// LiteralBytes is Literal for binary content.
func LiteralBytes(body []byte) Route {
	return Route{status: http.StatusOK, body: body}
}

// HTML returns a literal route with a text/html content type.
func HTML(body string) Route {
	return Literal(body).WithHeader("Content-Type", "text/html; charset=utf-8")
}

// JavaScript returns a literal route with a JavaScript content type, for worker scripts.
func JavaScript(body string) Route {
	return Literal(body).WithHeader("Content-Type", "text/javascript; charset=utf-8")
}

// JSON returns a literal route whose body is the JSON encoding of value. If value cannot be
// encoded, Validate reports the error.
func JSON(value interface{}) Route {
	data, err := json.Marshal(value)
	r := LiteralBytes(data).WithHeader("Content-Type", "application/json")
	if err != nil {
		r.buildErr = fmt.Errorf("cannot encode JSON body: %w", err)
	}
	return r
}

// Status returns a route with the given status and no body.
func Status(status int) Route {
	return Route{status: status}
}

// File returns a route that streams the contents of a file from the local filesystem. The
// content type is derived from the file's extension.
func File(filePath string) Route {
	return Route{status: http.StatusOK, filePath: filePath}
}

// FileFromFS is File for a file in an fs.FS, such as an embedded directory.
func FileFromFS(fileSystem fs.FS, name string) Route {
	return Route{status: http.StatusOK, filePath: name, fileSystem: fileSystem}
}

// Redirect returns a route that answers with a 302 whose Location is the target path on the
// server's alias host. The port is the same, so the redirect crosses sites without a second
// server.
func Redirect(targetPath string) Route {
	return Route{status: http.StatusFound, redirectTo: targetPath, crossHost: true}
}

// RedirectSameHost is Redirect without the change of host.
func RedirectSameHost(targetPath string) Route {
	return Route{status: http.StatusFound, redirectTo: targetPath}
}

// Handler returns a route that delegates to any http.Handler.
func Handler(handler http.Handler) Route {
	return Route{handler: handler}
}

// WithStatus returns a copy of the route with a different status code.
func (r Route) WithStatus(status int) Route {
	r.status = status
	return r
}

// WithHeader returns a copy of the route with an added response header.
func (r Route) WithHeader(name, value string) Route {
	h := r.headers.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Add(name, value)
	r.headers = h
	return r
}

// WithDelay returns a copy of the route whose response is deferred by the given duration. The
// wait is a timer, and is abandoned if the client goes away or the server closes.
func (r Route) WithDelay(delay time.Duration) Route {
	r.delay = delay
	return r
}

// Delay returns the route's response delay.
func (r Route) Delay() time.Duration { return r.delay }

// RedirectTarget returns the target path of a redirect route, or "" for other routes.
func (r Route) RedirectTarget() string { return r.redirectTo }

// Paths returns the table's paths in sorted order.
func (rt RouteTable) Paths() []string {
	paths := maps.Keys(rt)
	slices.Sort(paths)
	return paths
}

// With returns a copy of the table with one more route.
func (rt RouteTable) With(routePath string, route Route) RouteTable {
	ret := maps.Clone(rt)
	if ret == nil {
		ret = make(RouteTable)
	}
	ret[routePath] = route
	return ret
}

// Validate checks the table for mistakes that would otherwise only show up as a confusing test
// failure: malformed paths, redirects to paths that are not in the table, and local files that
// do not exist.
func (rt RouteTable) Validate() error {
	var errs []error
	for _, p := range rt.Paths() {
		r := rt[p]
		switch {
		case !strings.HasPrefix(p, "/"):
			errs = append(errs, fmt.Errorf("route path %q must start with a slash", p))
		case strings.ContainsAny(p, "{}?#"):
			errs = append(errs, fmt.Errorf("route path %q may not contain braces, query, or fragment", p))
		}
		if r.buildErr != nil {
			errs = append(errs, fmt.Errorf("route %q: %w", p, r.buildErr))
		}
		if r.redirectTo != "" {
			if _, ok := rt[r.redirectTo]; !ok {
				errs = append(errs, fmt.Errorf("route %q redirects to %q, which is not in the table", p, r.redirectTo))
			}
		}
		if r.filePath != "" && r.fileSystem == nil {
			if _, err := os.Stat(r.filePath); err != nil {
				errs = append(errs, fmt.Errorf("route %q: %w", p, err))
			}
		}
	}
	return errors.Join(errs...)
}

// eventStreams returns each distinct EventStream in the table once, even if several paths
// share it.
func (rt RouteTable) eventStreams() []*EventStream {
	var ret []*EventStream
	for _, p := range rt.Paths() {
		if s := rt[p].eventStream; s != nil && !slices.Contains(ret, s) {
			ret = append(ret, s)
		}
	}
	return ret
}

// routeContext is what a fixture server supplies to routes when building their handlers.
type routeContext struct {
	aliasBaseURL string
	baseURL      string
	done         <-chan struct{}
	logger       framework.Logger
}

// Handler serves the table without a listener of its own, for instance to answer requests that
// reach the harness some other way than over a socket. Redirects point at baseURL; there is no
// alias host, so cross-host redirects also point at baseURL.
func (rt RouteTable) Handler(baseURL string, logger framework.Logger) http.Handler {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return rt.buildRouter(routeContext{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		aliasBaseURL: strings.TrimSuffix(baseURL, "/"),
		done:         make(chan struct{}),
		logger:       logger,
	})
}

func (rt RouteTable) buildRouter(rc routeContext) *mux.Router {
	router := mux.NewRouter().SkipClean(true)
	for _, p := range rt.Paths() {
		router.Path(p).Handler(rt[p].buildHandler(p, rc))
	}
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc.logger.Printf("No route for %s %s, answering with empty 200", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	return router
}

func (r Route) buildHandler(routePath string, rc routeContext) http.Handler {
	var h http.Handler
	switch {
	case r.handler != nil:
		h = r.handler
	case r.webSocket != nil:
		h = webSocketRouteHandler(r.webSocket, rc)
	case r.eventStream != nil:
		h = r.eventStream
	case r.redirectTo != "":
		base := rc.baseURL
		if r.crossHost {
			base = rc.aliasBaseURL
		}
		location := base + r.redirectTo
		h = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.writeHeaders(w)
			w.Header().Set("Location", location)
			w.WriteHeader(r.status)
		})
	case r.filePath != "":
		h = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.serveFile(w, req, rc.logger)
		})
	default:
		h = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.writeHeaders(w)
			w.WriteHeader(r.statusOrDefault())
			_, _ = w.Write(r.body)
		})
	}
	if r.delay > 0 {
		h = delayedHandler(r.delay, rc.done, h)
	}
	return h
}

func (r Route) statusOrDefault() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r Route) writeHeaders(w http.ResponseWriter) {
	for name, values := range r.headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
}

func (r Route) serveFile(w http.ResponseWriter, req *http.Request, logger framework.Logger) {
	content, modTime, err := r.openFile()
	if err != nil {
		logger.Printf("Could not read fixture file %q: %s", r.filePath, err)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if closer, ok := content.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	r.writeHeaders(w)
	if r.statusOrDefault() != http.StatusOK {
		w.WriteHeader(r.status)
		_, _ = io.Copy(w, content)
		return
	}
	// ServeContent picks the content type from the extension of the name.
	http.ServeContent(w, req, path.Base(r.filePath), modTime, content)
}

func (r Route) openFile() (io.ReadSeeker, time.Time, error) {
	if r.fileSystem == nil {
		f, err := os.Open(r.filePath)
		if err != nil {
			return nil, time.Time{}, err
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, time.Time{}, err
		}
		return f, info.ModTime(), nil
	}
	f, err := r.fileSystem.Open(r.filePath)
	if err != nil {
		return nil, time.Time{}, err
	}
	var modTime time.Time
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}
	if rs, ok := f.(io.ReadSeeker); ok {
		return rs, modTime, nil
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, time.Time{}, err
	}
	return bytes.NewReader(data), modTime, nil
}

func delayedHandler(delay time.Duration, serverDone <-chan struct{}, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := sleepContext(r.Context(), serverDone, delay); err != nil {
			// drop the connection instead of sending an empty response
			panic(http.ErrAbortHandler)
		}
		h.ServeHTTP(w, r)
	})
}

func sleepContext(ctx context.Context, done <-chan struct{}, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return errServerClosed
	}
}
