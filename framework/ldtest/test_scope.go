package ldtest

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/hostcontract/host-contract-tests/framework"
)

type environment struct {
	config  TestConfiguration
	results Results
	lock    sync.Mutex
}

// T is the scope of one test, similar to Go's testing.T. Everything a test allocates (fixture
// servers, host windows, callback endpoints) is owned by its T and released by the cleanups
// registered with Defer.
type T struct {
	env         *environment
	id          TestID
	debugLogger framework.CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	cleanups    []func()
	errors      []error
	helperFns   []string
}

// TestConfiguration contains options for the entire test run.
type TestConfiguration struct {
	// Filter optionally selects which tests to run based on their IDs.
	Filter Filter

	// TestLogger receives status information about each test.
	TestLogger TestLogger

	// Context is an application-defined value that tests can retrieve with T.Context.
	Context interface{}

	// Capabilities is used by T.Capabilities and T.RequireCapability.
	Capabilities framework.Capabilities
}

// Run starts a top-level test scope and returns the results of it and all of its subtests.
func Run(config TestConfiguration, action func(*T)) Results {
	if config.TestLogger == nil {
		config.TestLogger = nullTestLogger{}
	}
	env := &environment{config: config}
	t := &T{env: env}
	t.run(action)
	return env.results
}

func (t *T) run(action func(*T)) (result TestResult) {
	result.TestID = t.id
	defer func() {
		if r := recover(); r != nil && !t.skipped {
			t.failed = true
			var addError error
			if _, ok := r.(*T); ok {
				if len(t.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				t.errors = append(t.errors, addError)
				t.env.config.TestLogger.TestError(t.id, addError)
			}
		}

		// Cleanups run before the result is recorded, so a failing cleanup fails the test.
		t.runCleanups()

		result.Errors = t.errors
		t.env.lock.Lock()
		if t.failed {
			t.env.results.Failures = append(t.env.results.Failures, result)
		}
		if !t.skipped {
			t.env.results.Tests = append(t.env.results.Tests, result)
		}
		t.env.lock.Unlock()
	}()

	action(t)
	return result
}

func (t *T) runCleanups() {
	for i := len(t.cleanups) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if _, ok := r.(*T); ok {
						return // cleanup called FailNow; its error is already recorded
					}
					t.failed = true
					err := fmt.Errorf("unexpected panic in cleanup: %+v", r)
					t.errors = append(t.errors, err)
					t.env.config.TestLogger.TestError(t.id, err)
				}
			}()
			t.cleanups[i]()
		}()
	}
	t.cleanups = nil
}

// ID returns the full name of the current test.
func (t *T) ID() TestID {
	return t.id
}

// Run runs a subtest in its own scope. It is equivalent to Go's testing.T.Run.
func (t *T) Run(name string, action func(*T)) {
	id := t.id.Plus(name)

	if t.env.config.Filter != nil && !t.env.config.Filter.Match(id) {
		return
	}
	t.env.config.TestLogger.TestStarted(id)
	child := &T{id: id, env: t.env}
	t.debugLogger.AddChildLogger(&child.debugLogger) // see comments on DebugLogger()
	result := child.run(action)
	t.debugLogger.RemoveChildLogger(&child.debugLogger)
	if child.skipped {
		t.env.config.TestLogger.TestSkipped(id, child.skipReason)
	} else {
		t.env.config.TestLogger.TestFinished(id, result, child.debugLogger.Output())
	}
}

// Failed returns true if the test has reported an error.
func (t *T) Failed() bool {
	return t.failed
}

// Errorf reports a test failure without terminating the test. Assertion helpers from testify and
// the matchers package call it through the TestingT interfaces.
func (t *T) Errorf(format string, args ...interface{}) {
	t.failed = true
	err := transformError(fmt.Errorf(format, args...), getStacktrace(false, t.helperFns))
	t.errors = append(t.errors, err)
	t.env.config.TestLogger.TestError(t.id, err)
}

// FailNow terminates the test immediately and marks it as failed.
func (t *T) FailNow() {
	t.failed = true
	panic(t)
}

// Skip terminates the test immediately and marks it as skipped.
func (t *T) Skip() {
	t.skipped = true
	panic(t)
}

// SkipWithReason is equivalent to Skip but provides a message.
func (t *T) SkipWithReason(reason string) {
	t.skipReason = reason
	t.Skip()
}

// Debug writes a message to the output for this test scope.
func (t *T) Debug(message string, args ...interface{}) {
	t.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger for writing output for this test scope. The output is passed to
// TestLogger.TestFinished, which decides whether to show it.
//
// While a subtest is running, anything logged to the parent's logger goes to the subtest's
// logger instead, and the subtest's output starts with a copy of what the parent had logged.
// This matters when a parent scope owns a fixture server that several subtests share: the
// server's request log shows up under the subtest that caused it.
func (t *T) DebugLogger() framework.Logger {
	return &t.debugLogger
}

// Defer schedules a cleanup function that is guaranteed to run when this test scope exits for
// any reason, including a failed assertion. Cleanups run in reverse order. Unlike a Go defer
// statement, Defer can be called from helper functions.
func (t *T) Defer(cleanupFn func()) {
	t.cleanups = append(t.cleanups, cleanupFn)
}

// Context returns the application-defined value from the TestConfiguration.
func (t *T) Context() interface{} {
	return t.env.config.Context
}

// Capabilities returns the capabilities reported by the host test service.
func (t *T) Capabilities() framework.Capabilities {
	return append(framework.Capabilities(nil), t.env.config.Capabilities...)
}

// RequireCapability skips the test unless the host test service has the named capability.
func (t *T) RequireCapability(name string) {
	if !t.Capabilities().Has(name) {
		t.SkipWithReason(fmt.Sprintf("host test service does not have capability %q", name))
	}
}

// Helper marks the calling function as a test helper that is left out of stacktraces.
// Equivalent to Go's testing.T.Helper().
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	if f := runtime.FuncForPC(pc); f != nil {
		t.helperFns = append(t.helperFns, f.Name())
	}
}
