package hosttests

import "time"

const (
	defaultReportTimeout = time.Second * 10
	defaultEventTimeout  = time.Second * 10

	// How long to wait before concluding that something did not happen.
	quietPeriod = time.Millisecond * 500

	// How long a report watcher waits on the fixture server before checking again.
	reportPollInterval = time.Minute
)
