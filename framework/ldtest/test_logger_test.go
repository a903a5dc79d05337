package ldtest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleTestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := ConsoleTestLogger{DebugOutputOnFailure: true, Output: &buf}

	results := Run(TestConfiguration{TestLogger: logger}, func(ldt *T) {
		ldt.Run("good", func(ldt *T) {
			ldt.Debug("not shown on success")
		})
		ldt.Run("bad", func(ldt *T) {
			ldt.Debug("shown on failure")
			ldt.Errorf("expected %d, got %d", 1, 2)
		})
		ldt.Run("skipped", func(ldt *T) {
			ldt.SkipWithReason("no capability")
		})
	})

	out := buf.String()
	assert.Contains(t, out, "[good]")
	assert.Contains(t, out, "[bad]")
	assert.Contains(t, out, "expected 1, got 2")
	assert.Contains(t, out, "FAILED: bad")
	assert.Contains(t, out, "shown on failure")
	assert.NotContains(t, out, "not shown on success")
	assert.Contains(t, out, "SKIPPED: skipped (no capability)")
	assert.False(t, results.OK())
}

func TestJUnitTestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junit.xml")
	logger := NewJUnitTestLogger(path, []byte(`{"name":"fake-host"}`), RegexFilters{})
	multi := &MultiTestLogger{Loggers: []TestLogger{logger}}

	results := Run(TestConfiguration{TestLogger: multi}, func(ldt *T) {
		ldt.Run("group", func(ldt *T) {
			ldt.Run("passes", func(ldt *T) {})
			ldt.Run("fails", func(ldt *T) { ldt.Errorf("broken") })
			ldt.Run("skips", func(ldt *T) { ldt.Skip() })
		})
	})
	require.NoError(t, multi.EndLog(results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc jUnitXMLDocument
	require.NoError(t, xml.Unmarshal(data, &doc))
	require.Len(t, doc.Suites, 1)
	suite := doc.Suites[0]
	assert.Equal(t, "host contract tests: group", suite.Name)
	assert.Equal(t, 4, suite.Tests)
	assert.Equal(t, 1, suite.Failures)
	assert.Equal(t, 1, suite.Skipped)
	assert.Contains(t, string(data), `fake-host`)
}

func TestMultiTestLoggerJoinsEndLogErrors(t *testing.T) {
	bad := NewJUnitTestLogger(filepath.Join(t.TempDir(), "missing-dir", "junit.xml"), nil, RegexFilters{})
	multi := &MultiTestLogger{Loggers: []TestLogger{nullTestLogger{}, bad}}
	err := multi.EndLog(Results{})
	assert.Error(t, err)
}

func TestDescribeErrorIncludesStacktrace(t *testing.T) {
	err := AssertionError{
		Message:    "expected: equal to 1",
		Stacktrace: []StacktraceInfo{{FileName: "x.go", Package: "p", Function: "f", Line: 3}},
	}
	assert.Contains(t, describeError(err), "Stacktrace:")
	assert.Contains(t, describeError(err), "(x.go:3)")
	assert.Equal(t, "plain", describeError(errors.New("plain")))
}
