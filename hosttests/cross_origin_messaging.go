package hosttests

import (
	"net/url"

	"github.com/hostcontract/host-contract-tests/framework/harness"
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"
)

func doCrossOriginMessagingTests(t *ldtest.T) {
	t.RequireCapability(servicedef.CapabilityCrossOriginMessaging)
	routes := loadRoutes(t, "messaging.yaml")

	parentURL := func(server *harness.FixtureServer, frameQuery string) string {
		frame := server.AliasURL() + "/frame.html" + frameQuery
		return server.URL() + "/parent.html?frame=" + url.QueryEscape(frame)
	}

	t.Run("parent sees the frame's origin", func(t *ldtest.T) {
		server := NewFixtureServer(t, routes)
		reports := NewReportSink(t, server)
		w := NewWindow(t)

		w.LoadURL(t, parentURL(server, ""))
		reports.Expect("message").Require(t, defaultReportTimeout,
			ReportHasString("origin", server.AliasURL()),
			ReportHasString("data", "hello"))
		reports.Expect("message").RequireNoExtra(t, quietPeriod)
	})

	t.Run("message for another target origin is not delivered", func(t *ldtest.T) {
		server := NewFixtureServer(t, routes)
		reports := NewReportSink(t, server)
		w := NewWindow(t)

		w.LoadURL(t, parentURL(server, "?mode=mismatch"))
		// Messages are delivered in order, so if the first one had been delivered it would come
		// before the sentinel.
		reports.Expect("message").Require(t, defaultReportTimeout, ReportHasString("data", "sentinel"))
		reports.Expect("message").RequireNoExtra(t, quietPeriod)
	})

	t.Run("event stream", func(t *ldtest.T) {
		t.RequireCapability(servicedef.CapabilityEventStream)
		stream := harness.NewEventStream(t.DebugLogger(), harness.StreamEvent{ID: "0", Name: "greeting", Payload: "hi"})
		server := NewFixtureServer(t, routes.With("/events", harness.EventStreamRoute(stream)))
		reports := NewReportSink(t, server)
		w := NewWindow(t)

		w.LoadURL(t, server.URL()+"/events.html")
		reports.RequireReport(t, "stream-open", defaultReportTimeout)
		reports.RequireReport(t, "stream-event", defaultReportTimeout,
			ReportHasString("name", "greeting"),
			ReportHasString("data", "hi"),
			ReportHasString("id", "0"))

		stream.Publish("update", "more")
		reports.RequireReport(t, "stream-event", defaultReportTimeout,
			ReportHasString("name", "update"),
			ReportHasString("data", "more"),
			ReportHasString("id", "1"))
	})
}
