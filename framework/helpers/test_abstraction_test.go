package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestRecorderCollectsErrors(t *testing.T) {
	var tr TestRecorder
	assert.NoError(t, tr.Err())

	tr.Errorf("expected %d requests", 2)
	tr.Errorf("no report")
	assert.Equal(t, []string{"expected 2 requests", "no report"}, tr.Errors)
	assert.EqualError(t, tr.Err(), "expected 2 requests, no report")
	assert.False(t, tr.Terminated)
}

func TestTestRecorderFailNow(t *testing.T) {
	var quiet TestRecorder
	quiet.FailNow()
	assert.True(t, quiet.Terminated)

	panicky := &TestRecorder{PanicOnTerminate: true}
	assert.PanicsWithValue(t, panicky, panicky.FailNow)
	assert.True(t, panicky.Terminated)
}
