package mockhost

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/hostcontract/host-contract-tests/framework"
	"github.com/hostcontract/host-contract-tests/framework/harness"
	"github.com/hostcontract/host-contract-tests/framework/helpers"
	"github.com/hostcontract/host-contract-tests/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

const reportPath = "/report"

// SchemeService answers the SchemeRequests for a custom URL scheme from a RouteTable, the same
// way a fixture server would answer HTTP requests. Requests that pages make to "/report" on the
// scheme are also delivered to Reports.
type SchemeService struct {
	*callbackService
	scheme   string
	routes   harness.RouteTable
	requests chan servicedef.SchemeRequest
	reports  chan ldvalue.Value
}

// NewSchemeService creates a SchemeService for the scheme.
func NewSchemeService(scheme string, routes harness.RouteTable, logger framework.Logger) *SchemeService {
	s := &SchemeService{
		callbackService: newCallbackService(logger, "scheme "+scheme),
		scheme:          scheme,
		routes:          routes,
		requests:        make(chan servicedef.SchemeRequest, hostEventBufferSize),
		reports:         make(chan ldvalue.Value, hostEventBufferSize),
	}
	s.addPath("/", func(d *json.Decoder) (interface{}, error) {
		var req servicedef.SchemeRequest
		if err := d.Decode(&req); err != nil {
			return nil, err
		}
		helpers.NonBlockingSend(s.requests, req)
		return s.respond(req)
	})
	return s
}

// Requests returns the channel of every SchemeRequest received.
func (s *SchemeService) Requests() <-chan servicedef.SchemeRequest { return s.requests }

// Reports returns the channel of JSON bodies that pages posted to "/report".
func (s *SchemeService) Reports() <-chan ldvalue.Value { return s.reports }

func (s *SchemeService) respond(req servicedef.SchemeRequest) (servicedef.SchemeResponse, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return servicedef.SchemeResponse{}, fmt.Errorf("malformed scheme URL %q: %w", req.URL, err)
	}
	if u.Scheme != s.scheme {
		return servicedef.SchemeResponse{}, fmt.Errorf("request for %q sent to handler for scheme %q", req.URL, s.scheme)
	}
	target := requestTarget(u)
	if strings.SplitN(target, "?", 2)[0] == reportPath {
		helpers.NonBlockingSend(s.reports, ldvalue.Parse(req.Body))
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq := httptest.NewRequest(method, target, bytes.NewReader(req.Body))
	httpReq.Host = u.Host
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	rr := httptest.NewRecorder()
	s.routes.Handler(s.scheme+"://"+u.Host, s.logger).ServeHTTP(rr, httpReq)

	resp := servicedef.SchemeResponse{
		Status:  rr.Code,
		Headers: make(map[string]string, len(rr.Header())),
		Body:    rr.Body.Bytes(),
	}
	for name := range rr.Header() {
		resp.Headers[name] = rr.Header().Get(name)
	}
	return resp, nil
}

// requestTarget returns the path and query of a scheme URL, always starting with a slash. Opaque
// URLs such as "app:index.html" are treated as if the path had been written "/index.html".
func requestTarget(u *url.URL) string {
	p := u.EscapedPath()
	if u.Opaque != "" {
		p = u.Opaque
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
