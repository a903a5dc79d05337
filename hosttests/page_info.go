package hosttests

import (
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/stretchr/testify/assert"
)

func doPageInfoTests(t *ldtest.T) {
	t.RequireCapability(servicedef.CapabilityPageInfo)
	routes := loadRoutes(t, "page-info.yaml")

	t.Run("title and URL of the loaded page", func(t *ldtest.T) {
		server := NewFixtureServer(t, routes)
		w := NewWindow(t)
		pageURL := server.URL() + "/info.html"

		w.LoadURL(t, pageURL)
		w.RequireEvent(t, servicedef.HostEventLoadFinished, defaultEventTimeout,
			HostEventURL().Should(m.Equal(pageURL)))

		info := w.PageInfo(t)
		assert.Equal(t, "Fixture Info", info.Title)
		assert.Equal(t, pageURL, info.URL)
	})

	t.Run("history length counts navigations", func(t *ldtest.T) {
		server := NewFixtureServer(t, routes)
		w := NewWindow(t)

		w.LoadURL(t, server.URL()+"/info.html")
		w.RequireEvent(t, servicedef.HostEventLoadFinished, defaultEventTimeout)
		w.LoadURL(t, server.URL()+"/second.html")
		w.RequireEvent(t, servicedef.HostEventLoadFinished, defaultEventTimeout,
			HostEventURL().Should(m.Equal(server.URL()+"/second.html")))

		info := w.PageInfo(t)
		assert.Equal(t, "Second Page", info.Title)
		assert.Equal(t, 2, info.HistoryLength)
	})
}
