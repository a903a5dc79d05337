package hosttests

import (
	"errors"
	"sync"
	"time"

	"github.com/hostcontract/host-contract-tests/data"
	"github.com/hostcontract/host-contract-tests/framework/harness"
	"github.com/hostcontract/host-contract-tests/framework/helpers"
	"github.com/hostcontract/host-contract-tests/framework/ldtest"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/stretchr/testify/require"
)

const reportPath = "/report"

// NewFixtureServer starts a fixture server that serves the route table for the current test
// scope. It is closed when the scope exits, however the test ends. If the server cannot be
// started, the test fails immediately.
func NewFixtureServer(t *ldtest.T, routes harness.RouteTable) *harness.FixtureServer {
	server, err := requireContext(t).harness.NewFixtureServer(routes, t.DebugLogger())
	require.NoError(t, err)
	t.Defer(func() { _ = server.Close() })
	return server
}

// loadRoutes reads a route table file from data/data-files/routes.
func loadRoutes(t *ldtest.T, fileName string) harness.RouteTable {
	table, err := data.LoadRouteTable(fileName)
	require.NoError(t, err)
	return table.Routes
}

// ReportSink collects the reports that fixture pages POST to "/report" on a fixture server, and
// sorts them by their "kind" property.
//
// For any kind, a test either reads reports one at a time with RequireReport, or asks for exactly
// one with Expect; it should not do both.
type ReportSink struct {
	server       *harness.FixtureServer
	byKind       map[string]chan ldvalue.Value
	observations map[string]*helpers.Observation[ldvalue.Value]
	done         bool
	lock         sync.Mutex
}

// NewReportSink starts collecting reports from the server. Collection stops when the server is
// closed.
func NewReportSink(t *ldtest.T, server *harness.FixtureServer) *ReportSink {
	s := &ReportSink{
		server:       server,
		byKind:       make(map[string]chan ldvalue.Value),
		observations: make(map[string]*helpers.Observation[ldvalue.Value]),
	}
	logger := t.DebugLogger()
	go func() {
		defer s.finish()
		for {
			info, err := server.AwaitRequestTo(reportPath, reportPollInterval)
			if err != nil {
				if errors.Is(err, helpers.ErrTimedOut) {
					continue
				}
				return
			}
			report := ldvalue.Parse(info.Body)
			kind := report.GetByKey("kind").StringValue()
			logger.Printf("Page reported %s: %s", kind, report.JSONString())
			helpers.NonBlockingSend(s.channel(kind), report)
		}
	}()
	return s
}

func (s *ReportSink) channel(kind string) chan ldvalue.Value {
	s.lock.Lock()
	defer s.lock.Unlock()
	ch, ok := s.byKind[kind]
	if !ok {
		ch = make(chan ldvalue.Value, 100)
		if s.done {
			close(ch)
		}
		s.byKind[kind] = ch
	}
	return ch
}

func (s *ReportSink) finish() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.done = true
	for _, ch := range s.byKind {
		close(ch)
	}
}

// RequireReport waits for the next report of the given kind and checks it against the matchers.
func (s *ReportSink) RequireReport(
	t helpers.TestContext,
	kind string,
	timeout time.Duration,
	matchers ...m.Matcher,
) ldvalue.Value {
	t.Helper()
	report := helpers.RequireValueWithMessage(t, s.channel(kind), timeout, "timed out waiting for a %q report", kind)
	if len(matchers) != 0 {
		m.In(t).Require(report, m.AllOf(matchers...))
	}
	return report
}

// RequireNoReport fails the test if a report of the given kind arrives within the timeout.
func (s *ReportSink) RequireNoReport(t helpers.TestContext, kind string, timeout time.Duration) {
	t.Helper()
	helpers.RequireNoMoreValuesWithMessage(t, s.channel(kind), timeout, "did not expect a %q report", kind)
}

// Expect returns an Observation that is resolved by the first report of the given kind. Any
// further reports of that kind are counted as extras.
func (s *ReportSink) Expect(kind string) *helpers.Observation[ldvalue.Value] {
	s.lock.Lock()
	if o, ok := s.observations[kind]; ok {
		s.lock.Unlock()
		return o
	}
	o := helpers.NewObservation[ldvalue.Value]("a " + kind + " report")
	s.observations[kind] = o
	s.lock.Unlock()

	ch := s.channel(kind)
	go func() {
		for report := range ch {
			o.Resolve(report)
		}
	}()
	return o
}
