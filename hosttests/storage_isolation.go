package hosttests

import (
	"net/url"

	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	o "github.com/hostcontract/host-contract-tests/framework/opt"
	"github.com/hostcontract/host-contract-tests/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

func storePageURL(baseURL, action, value string) string {
	q := url.Values{"action": {action}}
	if value != "" {
		q.Set("value", value)
	}
	return baseURL + "/store.html?" + q.Encode()
}

func doStorageIsolationTests(t *ldtest.T) {
	t.RequireCapability(servicedef.CapabilityStorageIsolation)
	routes := loadRoutes(t, "storage.yaml")

	// writeMarker stores a value unique to the test in a new window and waits for the page to
	// confirm it.
	writeMarker := func(t *ldtest.T, reports *ReportSink, baseURL string, options ...WindowOption) string {
		marker := t.ID().String()
		w := NewWindow(t, options...)
		w.LoadURL(t, storePageURL(baseURL, "write", marker))
		reports.RequireReport(t, "storage", defaultReportTimeout,
			ReportHasBool("available", true),
			ReportHasString("value", marker))
		return marker
	}

	readMarker := func(t *ldtest.T, reports *ReportSink, baseURL string, options ...WindowOption) ldvalue.Value {
		w := NewWindow(t, options...)
		w.LoadURL(t, storePageURL(baseURL, "read", ""))
		return reports.RequireReport(t, "storage", defaultReportTimeout)
	}

	t.Run("same origin shares storage", func(t *ldtest.T) {
		server := NewFixtureServer(t, routes)
		reports := NewReportSink(t, server)

		marker := writeMarker(t, reports, server.URL())
		result := readMarker(t, reports, server.URL())
		m.In(t).Assert(result, ReportHasString("value", marker))
	})

	t.Run("alias origin is isolated", func(t *ldtest.T) {
		server := NewFixtureServer(t, routes)
		reports := NewReportSink(t, server)

		writeMarker(t, reports, server.URL())
		result := readMarker(t, reports, server.AliasURL())
		m.In(t).Assert(result, m.AllOf(
			ReportHasBool("available", true),
			ReportProperty("value").Should(m.Equal(ldvalue.Null())),
		))
	})

	t.Run("different partitions are isolated", func(t *ldtest.T) {
		server := NewFixtureServer(t, routes)
		reports := NewReportSink(t, server)

		writeMarker(t, reports, server.URL(), WithPartition("host-contract-a"))
		result := readMarker(t, reports, server.URL(), WithPartition("host-contract-b"))
		m.In(t).Assert(result, ReportProperty("value").Should(m.Equal(ldvalue.Null())))
	})

	t.Run("storage disabled in content view", func(t *ldtest.T) {
		server := NewFixtureServer(t, routes)
		reports := NewReportSink(t, server)

		result := readMarker(t, reports, server.URL(),
			WithContentView(servicedef.ContentViewOptions{Storage: o.Some(false)}))
		m.In(t).Assert(result, ReportHasBool("available", false))
	})

	t.Run("custom scheme", func(t *ldtest.T) {
		t.RequireCapability(servicedef.CapabilityCustomSchemes)
		schemeRoutes := loadRoutes(t, "custom-scheme.yaml")

		// Pages on an unprivileged scheme may not be able to report, so the result is read from
		// the page itself.
		storageOnScheme := func(t *ldtest.T, scheme string, privileged bool) ldvalue.Value {
			w := NewWindow(t)
			w.RegisterScheme(t, scheme, privileged, schemeRoutes)
			pageURL := storePageURL(scheme+"://bundle", "write", t.ID().String())
			w.LoadURL(t, pageURL)
			w.RequireEvent(t, servicedef.HostEventLoadFinished, defaultEventTimeout)
			return w.ExecuteScript(t, "window.storageResult")
		}

		t.Run("unprivileged scheme is denied", func(t *ldtest.T) {
			result := storageOnScheme(t, "hct-plain", false)
			m.In(t).Assert(result, ReportHasBool("available", false))
		})

		t.Run("privileged scheme is allowed", func(t *ldtest.T) {
			result := storageOnScheme(t, "hct-secure", true)
			m.In(t).Assert(result, m.AllOf(
				ReportHasBool("available", true),
				ReportHasString("value", t.ID().String()),
			))
		})
	})
}
