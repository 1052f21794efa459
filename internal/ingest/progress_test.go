package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonotonicReporterClampsRegressions(t *testing.T) {
	capture := &captureReporter{}
	r := newMonotonicReporter(capture)

	r.Report(Event{Stage: StageValidation, Percent: 5})
	r.Report(Event{Stage: StageExtracting, Percent: 10})
	r.Report(Event{Stage: StageChunking, Percent: 8}) // must not go backwards
	r.Report(Event{Stage: StageEmbedding, Percent: 40})

	require.Len(t, capture.events, 4)
	assert.Equal(t, 5, capture.events[0].Percent)
	assert.Equal(t, 10, capture.events[1].Percent)
	assert.Equal(t, 10, capture.events[2].Percent)
	assert.Equal(t, 40, capture.events[3].Percent)
}

func TestMonotonicReporterWarningsKeepPercent(t *testing.T) {
	capture := &captureReporter{}
	r := newMonotonicReporter(capture)

	r.Report(Event{Stage: StageEmbedding, Percent: 50})
	r.Report(Event{Stage: StageWarning, Message: "batch failed"})
	r.Report(Event{Stage: StageEmbedding, Percent: 60})

	assert.Equal(t, 50, capture.events[1].Percent)
	assert.Equal(t, 60, capture.events[2].Percent)
}

func TestNopReporterAcceptsEvents(t *testing.T) {
	assert.NotPanics(t, func() {
		NopReporter().Report(Event{Stage: StageComplete, Percent: 100})
	})
}
