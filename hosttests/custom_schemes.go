package hosttests

import (
	"github.com/hostcontract/host-contract-tests/framework/helpers"
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/stretchr/testify/assert"
)

func doCustomSchemeTests(t *ldtest.T) {
	t.RequireCapability(servicedef.CapabilityCustomSchemes)
	routes := loadRoutes(t, "custom-scheme.yaml")
	const scheme = "hct-app"
	pageURL := scheme + "://bundle/index.html"

	t.Run("registered scheme is served from the route table", func(t *ldtest.T) {
		w := NewWindow(t)
		service := w.RegisterScheme(t, scheme, true, routes)

		w.LoadURL(t, pageURL)
		request := helpers.RequireValue(t, service.Requests(), defaultEventTimeout)
		assert.Equal(t, pageURL, request.URL)
		w.RequireEvent(t, servicedef.HostEventLoadFinished, defaultEventTimeout,
			HostEventURL().Should(m.Equal(pageURL)))

		info := w.PageInfo(t)
		assert.Equal(t, "Bundled", info.Title)
	})

	t.Run("page on the scheme can report", func(t *ldtest.T) {
		w := NewWindow(t)
		service := w.RegisterScheme(t, scheme, true, routes)

		w.LoadURL(t, pageURL)
		report := helpers.RequireValue(t, service.Reports(), defaultReportTimeout)
		m.In(t).Assert(report, m.AllOf(
			ReportHasString("kind", "scheme-page"),
			ReportHasString("protocol", scheme+":"),
		))
	})

	t.Run("unregistered scheme is no longer served", func(t *ldtest.T) {
		w := NewWindow(t)
		service := w.RegisterScheme(t, scheme, true, routes)
		w.UnregisterScheme(t, scheme)

		w.LoadURL(t, pageURL)
		w.RequireEvent(t, servicedef.HostEventLoadFailed, defaultEventTimeout)
		helpers.RequireNoMoreValues(t, service.Requests(), quietPeriod)
	})
}
