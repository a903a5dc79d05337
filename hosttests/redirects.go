package hosttests

import (
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRedirectTests(t *ldtest.T) {
	t.RequireCapability(servicedef.CapabilityRedirects)
	routes := loadRoutes(t, "redirects.yaml")

	for _, startPath := range []string{"/redirect-cross-site", "/slow-redirect"} {
		t.Run(startPath, func(t *ldtest.T) {
			t.Run("redirect is reported before load finishes", func(t *ldtest.T) {
				server := NewFixtureServer(t, routes)
				w := NewWindow(t)
				landedURL := server.AliasURL() + "/redirected"

				w.LoadURL(t, server.URL()+startPath)
				events := w.RequireEventsThrough(t, servicedef.HostEventLoadFinished, defaultEventTimeout)

				var kinds []string
				for _, e := range events {
					kinds = append(kinds, e.Kind)
				}
				redirect := indexOfEvent(events, servicedef.HostEventRedirect)
				require.NotEqual(t, -1, redirect, "no redirect event before load finished; events were: %v", kinds)
				m.In(t).Assert(events[redirect], HostEventURL().Should(m.Equal(landedURL)))
				m.In(t).Assert(events[len(events)-1], HostEventURL().Should(m.Equal(landedURL)))

				if started := indexOfEvent(events, servicedef.HostEventNavigationStarted); started != -1 {
					assert.Less(t, started, redirect, "navigation started after redirect; events were: %v", kinds)
				}
				w.RequireNoEvent(t, servicedef.HostEventRedirect, quietPeriod)
			})

			t.Run("page lands on the alias host", func(t *ldtest.T) {
				server := NewFixtureServer(t, routes)
				reports := NewReportSink(t, server)
				w := NewWindow(t)

				w.LoadURL(t, server.URL()+startPath)
				reports.Expect("landed").Require(t, defaultReportTimeout,
					ReportHasString("url", server.AliasURL()+"/redirected"))

				first := server.RequireRequestTo(t, startPath, defaultReportTimeout)
				m.In(t).Assert(first, RequestHost().Should(m.Equal(URLHostOf(server.URL()))))
				landed := server.RequireRequestTo(t, "/redirected", defaultReportTimeout)
				m.In(t).Assert(landed, RequestHost().Should(m.Equal(URLHostOf(server.AliasURL()))))
			})
		})
	}
}

func indexOfEvent(events []servicedef.HostEvent, kind string) int {
	for i, e := range events {
		if e.Kind == kind {
			return i
		}
	}
	return -1
}
