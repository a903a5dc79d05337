package hosttests

import (
	"github.com/hostcontract/host-contract-tests/data"
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/stretchr/testify/require"
)

func doFontFallbackTests(t *ldtest.T) {
	t.RequireCapability(servicedef.CapabilityFontFallback)
	variants, err := data.LoadRouteTableVariants("font-fallback.yaml")
	require.NoError(t, err)

	for _, variant := range variants {
		routes := variant.Routes
		generic := variant.Params["generic"].StringValue()
		t.Run(generic, func(t *ldtest.T) {
			server := NewFixtureServer(t, routes)
			reports := NewReportSink(t, server)
			w := NewWindow(t)

			w.LoadURL(t, server.URL()+"/fonts.html")
			report := reports.Expect("font-fallback").Require(t, defaultReportTimeout,
				ReportHasString("generic", generic))
			m.In(t).Assert(report, ReportProperty("actual").Should(m.Equal(report.GetByKey("expected"))))
		})
	}
}
