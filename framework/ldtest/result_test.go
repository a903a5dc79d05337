package ldtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestIDFormatting(t *testing.T) {
	for expected, id := range map[string]TestID{
		"":                                  nil,
		"redirects":                         {"redirects"},
		"redirects//slow-redirect":          {"redirects", "/slow-redirect"},
		"storage isolation/custom scheme/a": {"storage isolation", "custom scheme", "a"},
	} {
		assert.Equal(t, expected, id.String())
	}
}

func TestTestIDPlusLeavesParentAlone(t *testing.T) {
	parent := make(TestID, 1, 4)
	parent[0] = "page info"
	title := parent.Plus("title")
	history := parent.Plus("history")

	assert.Equal(t, TestID{"page info"}, parent)
	assert.Equal(t, TestID{"page info", "title"}, title)
	assert.Equal(t, TestID{"page info", "history"}, history)
	assert.Equal(t, TestID{"page info", "title", "reload"}, title.Plus("reload"))
}

func TestResultsOK(t *testing.T) {
	passed := TestResult{TestID: TestID{"websocket"}}
	failed := TestResult{TestID: TestID{"redirects"}, Errors: []error{errors.New("no redirect event")}}

	assert.False(t, passed.Failed())
	assert.True(t, failed.Failed())
	assert.True(t, Results{Tests: []TestResult{passed}}.OK())
	assert.False(t, Results{Tests: []TestResult{passed, failed}, Failures: []TestResult{failed}}.OK())
}

func TestTestFailureWrapsError(t *testing.T) {
	cause := errors.New("window closed early")
	f := TestFailure{ID: TestID{"window-open", "noopener"}, Err: cause}

	assert.Equal(t, "[window-open/noopener]: window closed early", f.Error())
	assert.True(t, errors.Is(f, cause))
	assert.Equal(t, cause, errors.Unwrap(f))
}
