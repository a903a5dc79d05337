package hosttests

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hostcontract/host-contract-tests/framework"
	"github.com/hostcontract/host-contract-tests/framework/harness"
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"
)

// RunHostTestSuite runs every test group that the host test service's capabilities allow.
func RunHostTestSuite(
	harness *harness.TestHarness,
	filter ldtest.Filter,
	testLogger ldtest.TestLogger,
) ldtest.Results {
	return runHostTestSuite(harness, filter, testLogger, os.Stdout)
}

func runHostTestSuite(
	harness *harness.TestHarness,
	filter ldtest.Filter,
	testLogger ldtest.TestLogger,
	out io.Writer,
) ldtest.Results {
	info := harness.TestServiceInfo()
	capabilities := info.Capabilities
	if len(capabilities.Missing(allCapabilities()...)) == len(allCapabilities()) {
		return ldtest.Results{
			Failures: []ldtest.TestResult{
				{
					Errors: []error{
						errors.New("host test service does not report any of the capabilities that the tests use"),
					},
				},
			},
		}
	}

	fmt.Fprintf(out, "Running host test suite against %q\n", info.Name)
	fmt.Fprintln(out)
	if sdf, ok := filter.(ldtest.SelfDescribingFilter); ok {
		sdf.Describe(out, capabilities, allCapabilities())
	}

	config := ldtest.TestConfiguration{
		Filter:       filter,
		Capabilities: capabilities,
		TestLogger:   testLogger,
		Context: HostTestContext{
			harness: harness,
		},
	}

	return ldtest.Run(config, doAllHostTests)
}

func doAllHostTests(t *ldtest.T) {
	t.Run("window-open", doWindowOpenTests)
	t.Run("cross-origin messaging", doCrossOriginMessagingTests)
	t.Run("storage isolation", doStorageIsolationTests)
	t.Run("worker privileges", doWorkerPrivilegeTests)
	t.Run("font fallback", doFontFallbackTests)
	t.Run("redirects", doRedirectTests)
	t.Run("websocket", doWebSocketTests)
	t.Run("page info", doPageInfoTests)
	t.Run("custom schemes", doCustomSchemeTests)
}

func allCapabilities() framework.Capabilities {
	return framework.Capabilities{
		servicedef.CapabilityWindowOpen,
		servicedef.CapabilityCrossOriginMessaging,
		servicedef.CapabilityEventStream,
		servicedef.CapabilityStorageIsolation,
		servicedef.CapabilityWorkerPrivileges,
		servicedef.CapabilityFontFallback,
		servicedef.CapabilityRedirects,
		servicedef.CapabilityWebSocket,
		servicedef.CapabilityPageInfo,
		servicedef.CapabilityCustomSchemes,
	}
}
