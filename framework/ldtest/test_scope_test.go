package ldtest

import (
	"testing"

	"github.com/hostcontract/host-contract-tests/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedResult struct {
	id     string
	errors []string
}

func summarize(results []TestResult) []recordedResult {
	ret := make([]recordedResult, 0, len(results))
	for _, r := range results {
		rr := recordedResult{id: r.TestID.String()}
		for _, e := range r.Errors {
			rr.errors = append(rr.errors, e.Error())
		}
		ret = append(ret, rr)
	}
	return ret
}

func TestSubtestsSeeRunConfiguration(t *testing.T) {
	caps := framework.Capabilities{"window-open", "websocket"}
	var seen []interface{}
	_ = Run(TestConfiguration{Context: "host context", Capabilities: caps}, func(ldt *T) {
		seen = append(seen, ldt.Context())
		ldt.Run("window-open", func(ldt *T) {
			seen = append(seen, ldt.Context())
			assert.Equal(t, caps, ldt.Capabilities())
		})
	})
	assert.Equal(t, []interface{}{"host context", "host context"}, seen)
}

func TestCapabilitiesReturnsCopy(t *testing.T) {
	caps := framework.Capabilities{"websocket"}
	_ = Run(TestConfiguration{Capabilities: caps}, func(ldt *T) {
		c := ldt.Capabilities()
		c[0] = "changed"
	})
	assert.Equal(t, framework.Capabilities{"websocket"}, caps)
}

func TestFailNowAndSkipStopOnlyTheCurrentScope(t *testing.T) {
	for name, stop := range map[string]func(*T){
		"FailNow":        (*T).FailNow,
		"Skip":           (*T).Skip,
		"SkipWithReason": func(t *T) { t.SkipWithReason("no host window") },
	} {
		t.Run(name, func(t *testing.T) {
			var steps []string
			_ = Run(TestConfiguration{}, func(ldt *T) {
				ldt.Run("inner", func(ldt *T) {
					steps = append(steps, "before")
					stop(ldt)
					steps = append(steps, "after")
				})
				steps = append(steps, "outer continues")
			})
			assert.Equal(t, []string{"before", "outer continues"}, steps)
		})
	}
}

func TestResultsOfPassingRun(t *testing.T) {
	results := Run(TestConfiguration{}, func(ldt *T) {
		ldt.Run("redirects", func(ldt *T) {
			ldt.Run("reported", func(*T) {})
			ldt.Run("landed", func(*T) {})
		})
	})

	assert.True(t, results.OK())
	assert.Len(t, results.Failures, 0)
	assert.Equal(t, []recordedResult{
		{id: "redirects/reported"},
		{id: "redirects/landed"},
		{id: "redirects"},
		{id: ""},
	}, summarize(results.Tests))
}

func TestResultsOfFailingRun(t *testing.T) {
	results := Run(TestConfiguration{}, func(ldt *T) {
		ldt.Run("storage isolation", func(ldt *T) {
			ldt.Run("same origin", func(*T) {})
			ldt.Run("alias origin", func(ldt *T) {
				ldt.Errorf("expected %s", "null")
				ldt.Errorf("got a value")
			})
			ldt.Errorf("group failed too")
		})
	})

	assert.False(t, results.OK())
	assert.Equal(t, []recordedResult{
		{id: "storage isolation/same origin"},
		{id: "storage isolation/alias origin", errors: []string{"expected null", "got a value"}},
		{id: "storage isolation", errors: []string{"group failed too"}},
		{id: ""},
	}, summarize(results.Tests))
	assert.Equal(t, []recordedResult{
		{id: "storage isolation/alias origin", errors: []string{"expected null", "got a value"}},
		{id: "storage isolation", errors: []string{"group failed too"}},
	}, summarize(results.Failures))
}

func TestSkippedTestsAreNotRecorded(t *testing.T) {
	results := Run(TestConfiguration{}, func(ldt *T) {
		ldt.Run("custom schemes", func(ldt *T) {
			ldt.Run("a", func(ldt *T) { ldt.Skip() })
			ldt.Run("b", func(ldt *T) { ldt.SkipWithReason("unsupported") })
		})
	})

	assert.True(t, results.OK())
	assert.Equal(t, []recordedResult{{id: "custom schemes"}, {id: ""}}, summarize(results.Tests))
}

func TestFilterPrunesSubtrees(t *testing.T) {
	filter := FilterFunc(func(id TestID) bool {
		return len(id) == 0 || id[0] == "websocket"
	})
	var ran []string
	results := Run(TestConfiguration{Filter: filter}, func(ldt *T) {
		for _, group := range []string{"page info", "websocket"} {
			ldt.Run(group, func(ldt *T) {
				ldt.Run("one", func(ldt *T) { ran = append(ran, ldt.ID().String()) })
			})
		}
	})

	assert.Equal(t, []string{"websocket/one"}, ran)
	assert.Equal(t, []recordedResult{{id: "websocket/one"}, {id: "websocket"}, {id: ""}}, summarize(results.Tests))
}

func TestCleanupsRunWhateverHappens(t *testing.T) {
	var closed []string
	closer := func(name string) func() {
		return func() { closed = append(closed, name) }
	}
	results := Run(TestConfiguration{}, func(ldt *T) {
		ldt.Run("passes", func(ldt *T) {
			ldt.Defer(closer("window"))
			ldt.Defer(closer("fixture server"))
		})
		ldt.Run("fails", func(ldt *T) {
			ldt.Defer(closer("failed window"))
			ldt.Errorf("no load event")
			ldt.FailNow()
		})
		ldt.Run("skips", func(ldt *T) {
			ldt.Defer(closer("skipped window"))
			ldt.Skip()
		})
		ldt.Run("panics", func(ldt *T) {
			ldt.Defer(closer("panicked window"))
			panic("unexpected")
		})
	})

	assert.Equal(t, []string{"fixture server", "window", "failed window", "skipped window", "panicked window"}, closed)
	assert.Len(t, results.Failures, 2)
}

func TestErrorInCleanupFailsTest(t *testing.T) {
	results := Run(TestConfiguration{}, func(ldt *T) {
		ldt.Run("close window", func(ldt *T) {
			ldt.Defer(func() { ldt.Errorf("window was already gone") })
		})
	})

	assert.Equal(t, []recordedResult{
		{id: "close window", errors: []string{"window was already gone"}},
	}, summarize(results.Failures))
}

func TestFailNowWithoutMessageIsReported(t *testing.T) {
	results := Run(TestConfiguration{}, func(ldt *T) {
		ldt.Run("silent", func(ldt *T) { ldt.FailNow() })
	})

	require.Len(t, results.Failures, 1)
	assert.Equal(t, "test failed with no failure message", results.Failures[0].Errors[0].Error())
}

func TestRequireCapabilitySkipsWhenMissing(t *testing.T) {
	var ran []string
	results := Run(TestConfiguration{Capabilities: framework.Capabilities{"redirects"}}, func(ldt *T) {
		for _, capability := range []string{"redirects", "custom-schemes"} {
			ldt.Run(capability, func(ldt *T) {
				ldt.RequireCapability(capability)
				ran = append(ran, capability)
			})
		}
	})

	assert.Equal(t, []string{"redirects"}, ran)
	assert.True(t, results.OK())
}

func TestParentDebugOutputFollowsRunningSubtest(t *testing.T) {
	logger := &outputRecordingLogger{}
	_ = Run(TestConfiguration{TestLogger: logger}, func(ldt *T) {
		ldt.Run("redirects", func(ldt *T) {
			shared := ldt.DebugLogger()
			shared.Printf("fixture server started")
			ldt.Run("landed", func(*T) {
				shared.Printf("request to /redirected")
			})
		})
	})

	output := logger.outputs["redirects/landed"]
	assert.Contains(t, output, "fixture server started")
	assert.Contains(t, output, "request to /redirected")
}

type outputRecordingLogger struct {
	outputs map[string]string
}

func (r *outputRecordingLogger) TestStarted(TestID)         {}
func (r *outputRecordingLogger) TestError(TestID, error)    {}
func (r *outputRecordingLogger) TestSkipped(TestID, string) {}
func (r *outputRecordingLogger) TestFinished(id TestID, _ TestResult, out framework.CapturedOutput) {
	if r.outputs == nil {
		r.outputs = make(map[string]string)
	}
	r.outputs[id.String()] = out.ToString("")
}
