package hosttests

import (
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/stretchr/testify/require"
)

func doWindowOpenTests(t *ldtest.T) {
	t.RequireCapability(servicedef.CapabilityWindowOpen)
	routes := loadRoutes(t, "window-open.yaml")

	openerWindow := func(t *ldtest.T) (*Window, *ReportSink, string) {
		server := NewFixtureServer(t, routes)
		reports := NewReportSink(t, server)
		w := NewWindow(t)
		w.LoadURL(t, server.URL()+"/opener.html")
		reports.RequireReport(t, "opener-loaded", defaultReportTimeout)
		return w, reports, server.URL()
	}

	t.Run("child window loads the requested URL", func(t *ldtest.T) {
		w, reports, baseURL := openerWindow(t)
		childURL := baseURL + "/child.html?n=1"

		opened := w.OpenChildWindow(t, servicedef.OpenChildWindowParams{URL: childURL})
		require.True(t, opened, "host blocked the child window")

		w.RequireEvent(t, servicedef.HostEventChildWindowCreated, defaultEventTimeout,
			HostEventURL().Should(m.Equal(childURL)))
		reports.Expect("child").Require(t, defaultReportTimeout,
			ReportHasString("url", childURL),
			ReportHasBool("hasOpener", true))
		reports.Expect("child").RequireNoExtra(t, quietPeriod)
	})

	t.Run("noopener hides the opener", func(t *ldtest.T) {
		w, reports, baseURL := openerWindow(t)

		// window.open returns null for noopener, so the result of the command says nothing here.
		_ = w.OpenChildWindow(t, servicedef.OpenChildWindowParams{
			URL:      baseURL + "/child.html?n=1",
			Features: "noopener",
		})
		reports.Expect("child").Require(t, defaultReportTimeout, ReportHasBool("hasOpener", false))
	})

	t.Run("named target is reused", func(t *ldtest.T) {
		w, reports, baseURL := openerWindow(t)
		params := servicedef.OpenChildWindowParams{URL: baseURL + "/child.html?n=1", Target: "reused"}

		require.True(t, w.OpenChildWindow(t, params), "host blocked the child window")
		w.RequireEvent(t, servicedef.HostEventChildWindowCreated, defaultEventTimeout)
		reports.RequireReport(t, "child", defaultReportTimeout,
			ReportHasString("n", "1"),
			ReportHasString("name", "reused"))

		params.URL = baseURL + "/child.html?n=2"
		w.OpenChildWindow(t, params)
		reports.RequireReport(t, "child", defaultReportTimeout,
			ReportHasString("n", "2"),
			ReportHasString("name", "reused"))
		w.RequireNoEvent(t, servicedef.HostEventChildWindowCreated, quietPeriod)
	})
}
