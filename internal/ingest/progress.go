package ingest

// Stage identifies one phase of an ingestion run.
type Stage string

const (
	StageValidation Stage = "validation"
	StageExtracting Stage = "extracting"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StageStoring    Stage = "storing"
	StageFinalizing Stage = "finalizing"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
	StageWarning    Stage = "warning"
)

// Fixed percent checkpoints. The embedding stage spans percentEmbedStart to
// percentEmbedEnd linearly with batch progress.
const (
	percentValidation = 5
	percentExtracting = 10
	percentImageDesc  = 15
	percentChunking   = 20
	percentEmbedStart = 30
	percentEmbedEnd   = 70
	percentStoring    = 75
	percentFinalizing = 90
	percentComplete   = 100
)

// Event is one progress notification pushed to the caller during a run.
// Delivery is fire-and-forget; a late subscriber misses earlier events and a
// slow transport may drop events, neither of which the pipeline notices.
type Event struct {
	Stage   Stage          `json:"stage"`
	Message string         `json:"message"`
	Percent int            `json:"progress_percent"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// Reporter receives progress events for a single ingestion run. Report must
// not block the pipeline.
type Reporter interface {
	Report(event Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(event Event) { f(event) }

// NopReporter discards all events.
func NopReporter() Reporter {
	return ReporterFunc(func(Event) {})
}

// monotonicReporter clamps percent so it never decreases within a run.
// Warnings inherit the last reported percent instead of moving it.
type monotonicReporter struct {
	inner Reporter
	last  int
}

func newMonotonicReporter(inner Reporter) *monotonicReporter {
	if inner == nil {
		inner = NopReporter()
	}
	return &monotonicReporter{inner: inner}
}

func (r *monotonicReporter) Report(event Event) {
	if event.Stage == StageWarning || event.Stage == StageError {
		event.Percent = r.last
	} else if event.Percent < r.last {
		event.Percent = r.last
	} else {
		r.last = event.Percent
	}
	r.inner.Report(event)
}
