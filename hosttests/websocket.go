package hosttests

import (
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

func doWebSocketTests(t *ldtest.T) {
	t.RequireCapability(servicedef.CapabilityWebSocket)
	routes := loadRoutes(t, "websocket.yaml")

	server := NewFixtureServer(t, routes)
	reports := NewReportSink(t, server)
	w := NewWindow(t)
	w.LoadURL(t, server.URL()+"/websocket.html")

	t.Run("page receives the greeting", func(t *ldtest.T) {
		reports.Expect("websocket-message").Require(t, defaultReportTimeout,
			ReportHasString("data", "hello from the fixture"))
	})

	t.Run("upgrade request carries a user agent", func(t *ldtest.T) {
		upgrade := server.RequireRequestTo(t, "/ws", defaultReportTimeout)
		m.In(t).Assert(upgrade, m.AllOf(
			RequestHeader("User-Agent").Should(m.Not(m.Equal(""))),
			RequestHeader("Upgrade").Should(m.AnyOf(m.Equal("websocket"), m.Equal("WebSocket"))),
		))
	})
}
