package hosttests

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hostcontract/host-contract-tests/framework/harness"
	"github.com/hostcontract/host-contract-tests/framework/helpers"
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportRoutes() harness.RouteTable {
	return harness.RouteTable{"/report": harness.Status(http.StatusNoContent)}
}

func postReport(t *testing.T, server *harness.FixtureServer, body string) {
	t.Helper()
	resp, err := http.Post(server.URL()+"/report", "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestReportSinkSortsReportsByKind(t *testing.T) {
	server, err := harness.StartFixtureServer(reportRoutes(), nil)
	require.NoError(t, err)
	defer server.Close()

	var first, second, other ldvalue.Value
	results := ldtest.Run(ldtest.TestConfiguration{}, func(ldt *ldtest.T) {
		sink := NewReportSink(ldt, server)
		postReport(t, server, `{"kind":"a","n":1}`)
		postReport(t, server, `{"kind":"b","n":2}`)
		postReport(t, server, `{"kind":"a","n":3}`)

		first = sink.RequireReport(ldt, "a", time.Second)
		second = sink.RequireReport(ldt, "a", time.Second, ReportProperty("n").Should(m.Equal(ldvalue.Int(3))))
		other = sink.RequireReport(ldt, "b", time.Second)
		sink.RequireNoReport(ldt, "a", time.Millisecond*50)
	})
	assert.True(t, results.OK(), "%+v", results.Failures)
	assert.Equal(t, 1, first.GetByKey("n").IntValue())
	assert.Equal(t, 3, second.GetByKey("n").IntValue())
	assert.Equal(t, 2, other.GetByKey("n").IntValue())
}

func TestReportSinkExpectCountsExtras(t *testing.T) {
	server, err := harness.StartFixtureServer(reportRoutes(), nil)
	require.NoError(t, err)
	defer server.Close()

	results := ldtest.Run(ldtest.TestConfiguration{}, func(ldt *ldtest.T) {
		sink := NewReportSink(ldt, server)
		o := sink.Expect("message")
		assert.Same(t, o, sink.Expect("message"))

		postReport(t, server, `{"kind":"message","data":"hello"}`)
		o.Require(ldt, time.Second, ReportHasString("data", "hello"))
		assert.Equal(t, 0, o.ExtraCount())

		postReport(t, server, `{"kind":"message","data":"again"}`)
		helpers.RequireEventually(ldt, time.Second, time.Millisecond*10,
			func() bool { return o.ExtraCount() == 1 }, "extra report was not counted")
	})
	assert.True(t, results.OK(), "%+v", results.Failures)
}

func TestReportSinkFailsTestOnTimeout(t *testing.T) {
	server, err := harness.StartFixtureServer(reportRoutes(), nil)
	require.NoError(t, err)
	defer server.Close()

	results := ldtest.Run(ldtest.TestConfiguration{}, func(ldt *ldtest.T) {
		sink := NewReportSink(ldt, server)
		sink.RequireReport(ldt, "never", time.Millisecond*50)
	})
	require.Len(t, results.Failures, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), `"never"`)
}

func TestReportSinkStopsWhenServerCloses(t *testing.T) {
	server, err := harness.StartFixtureServer(reportRoutes(), nil)
	require.NoError(t, err)

	recorder := &helpers.TestRecorder{}
	_ = ldtest.Run(ldtest.TestConfiguration{}, func(ldt *ldtest.T) {
		sink := NewReportSink(ldt, server)
		require.NoError(t, server.Close())

		start := time.Now()
		sink.RequireNoReport(recorder, "anything", time.Second*5)
		assert.Less(t, time.Since(start), time.Second*5)
	})
	assert.Len(t, recorder.Errors, 0)
}

func TestReportMatchers(t *testing.T) {
	report := ldvalue.Parse([]byte(`{"kind":"child","url":"http://localhost:1/child.html","hasOpener":false}`))

	m.In(t).Assert(report, ReportHasString("kind", "child"))
	m.In(t).Assert(report, ReportHasBool("hasOpener", false))
	m.In(t).Assert(report, ReportProperty("missing").Should(m.Equal(ldvalue.Null())))
	m.In(t).Assert(report, m.Not(ReportHasString("kind", "parent")))
}

func TestHostEventAndRequestMatchers(t *testing.T) {
	event := servicedef.HostEvent{Kind: servicedef.HostEventRedirect, URL: "http://localhost:8000/redirected"}
	m.In(t).Assert(event, HostEventKind().Should(m.Equal(servicedef.HostEventRedirect)))
	m.In(t).Assert(event, HostEventURL().Should(m.Equal("http://localhost:8000/redirected")))
	m.In(t).Assert(event.URL, URLHost().Should(m.Equal("localhost:8000")))
	assert.Equal(t, "127.0.0.1:9", URLHostOf("http://127.0.0.1:9"))

	request := harness.IncomingRequestInfo{
		Host:    "localhost:8000",
		Headers: http.Header{"User-Agent": []string{"host/1.0"}},
	}
	m.In(t).Assert(request, RequestHeader("User-Agent").Should(m.Equal("host/1.0")))
	m.In(t).Assert(request, RequestHost().Should(m.Equal("localhost:8000")))
}

func TestDescribeEvents(t *testing.T) {
	assert.Equal(t, "none", describeEvents(nil))
	assert.Equal(t, "redirect(http://a), loadFinished(http://b)", describeEvents([]servicedef.HostEvent{
		{Kind: servicedef.HostEventRedirect, URL: "http://a"},
		{Kind: servicedef.HostEventLoadFinished, URL: "http://b"},
	}))
}
