package hosttests

import (
	"github.com/hostcontract/host-contract-tests/framework/ldtest"
	"github.com/hostcontract/host-contract-tests/servicedef"
)

func doWorkerPrivilegeTests(t *ldtest.T) {
	t.RequireCapability(servicedef.CapabilityWorkerPrivileges)
	routes := loadRoutes(t, "workers.yaml")

	runWorker := func(t *ldtest.T, options ...WindowOption) *ReportSink {
		server := NewFixtureServer(t, routes)
		reports := NewReportSink(t, server)
		w := NewWindow(t, options...)
		w.LoadURL(t, server.URL()+"/worker.html")
		return reports
	}

	t.Run("worker has no host integration by default", func(t *ldtest.T) {
		reports := runWorker(t)
		reports.Expect("worker").Require(t, defaultReportTimeout,
			ReportHasBool("hasRequire", false),
			ReportHasBool("hasProcess", false),
			ReportHasBool("hasImportScripts", true))
	})

	t.Run("worker has host integration when enabled", func(t *ldtest.T) {
		reports := runWorker(t, WithContentView(servicedef.ContentViewOptions{WorkerHostIntegration: true}))
		reports.Expect("worker").Require(t, defaultReportTimeout,
			ReportHasBool("hasProcess", true),
			ReportHasBool("hasImportScripts", true))
	})
}
