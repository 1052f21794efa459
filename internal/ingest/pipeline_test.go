package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragvault/internal/model"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	return f.text, f.err
}

type fakeVectorStore struct {
	collections []string
	upserts     [][]Record
	err         error
}

func (f *fakeVectorStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if f.err != nil {
		return f.err
	}
	f.collections = append(f.collections, collection)
	f.upserts = append(f.upserts, records)
	return nil
}

type fakeDocStore struct {
	created []*model.Document
	err     error
}

func (f *fakeDocStore) Create(doc *model.Document) error {
	if f.err != nil {
		return f.err
	}
	doc.ID = uint(len(f.created) + 1)
	f.created = append(f.created, doc)
	return nil
}

func testRequest() Request {
	return Request{
		UserID:           1,
		CollectionID:     3,
		VectorCollection: "rv_test",
		Filename:         "notes.txt",
		Data:             []byte("raw"),
	}
}

func newTestPipeline(text string, embedCalls *int, vectors *fakeVectorStore, docs *fakeDocStore, opts Options) *Pipeline {
	embed := func(ctx context.Context, chunk string) ([]float32, error) {
		*embedCalls++
		return []float32{0.5, 0.5}, nil
	}
	return NewPipeline(&fakeExtractor{text: text}, embed, vectors, docs, opts)
}

func nonDecreasingPercents(t *testing.T, events []Event) {
	t.Helper()
	last := 0
	for _, e := range events {
		require.GreaterOrEqual(t, e.Percent, last, "stage %s went backwards", e.Stage)
		last = e.Percent
	}
}

// Scenario: 12k characters of sentences, default-ish chunk parameters.
func TestPipelinePlainDocument(t *testing.T) {
	text := strings.Repeat("All work and no play makes Jack a dull boy. ", 273) // ~12000 chars
	calls := 0
	vectors := &fakeVectorStore{}
	docs := &fakeDocStore{}
	p := newTestPipeline(text, &calls, vectors, docs, Options{ChunkSize: 4000, ChunkOverlap: 1000, BatchSize: 5})

	reporter := &captureReporter{}
	summary, err := p.Run(context.Background(), testRequest(), reporter)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, summary.TotalChunks, 4)
	assert.LessOrEqual(t, summary.TotalChunks, 5)
	assert.Equal(t, summary.TotalChunks, summary.ChunksStored)
	assert.Zero(t, summary.ChunksSkipped)
	assert.Equal(t, summary.TotalChunks, calls)

	require.Len(t, vectors.upserts, 1)
	assert.Equal(t, "rv_test", vectors.collections[0])
	assert.Len(t, vectors.upserts[0], summary.TotalChunks)

	require.Len(t, docs.created, 1)
	doc := docs.created[0]
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, "txt", doc.FileType)
	assert.Len(t, doc.ContentPreview, 500)

	final := reporter.events[len(reporter.events)-1]
	assert.Equal(t, StageComplete, final.Stage)
	assert.Equal(t, 100, final.Percent)
	nonDecreasingPercents(t, reporter.events)
}

// Scenario: the provider fails on batch 2 of 3; the run still completes with
// the shortfall accounted.
func TestPipelineFailingBatchStillCompletes(t *testing.T) {
	text := strings.Repeat("a", 1150) // 12 chunks of <=100 runes
	calls := 0
	vectors := &fakeVectorStore{}
	docs := &fakeDocStore{}
	embed := func(ctx context.Context, chunk string) ([]float32, error) {
		calls++
		if calls == 6 {
			return nil, errors.New("rate limited")
		}
		return []float32{0.5, 0.5}, nil
	}
	p := NewPipeline(&fakeExtractor{text: text}, embed, vectors, docs, Options{ChunkSize: 100, ChunkOverlap: 0, BatchSize: 5})

	reporter := &captureReporter{}
	summary, err := p.Run(context.Background(), testRequest(), reporter)
	require.NoError(t, err)

	assert.Equal(t, 12, summary.TotalChunks)
	assert.Equal(t, 5, summary.ChunksSkipped)
	assert.Equal(t, 7, summary.ChunksStored)

	warnings := reporter.warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, 2, warnings[0].Extra["batch"])

	require.Len(t, docs.created, 1)
	final := reporter.events[len(reporter.events)-1]
	assert.Equal(t, StageComplete, final.Stage)
	assert.Equal(t, 100, final.Percent)
}

// Scenario: extraction yields empty text; the document row is still created.
func TestPipelineEmptyTextStillCreatesDocument(t *testing.T) {
	calls := 0
	vectors := &fakeVectorStore{}
	docs := &fakeDocStore{}
	p := newTestPipeline("", &calls, vectors, docs, Options{})

	reporter := &captureReporter{}
	summary, err := p.Run(context.Background(), testRequest(), reporter)
	require.NoError(t, err)

	assert.Zero(t, summary.TotalChunks)
	assert.Zero(t, calls)
	assert.Empty(t, vectors.upserts)
	require.Len(t, docs.created, 1)
	assert.Empty(t, docs.created[0].ContentPreview)

	final := reporter.events[len(reporter.events)-1]
	assert.Equal(t, StageComplete, final.Stage)
	assert.Equal(t, 100, final.Percent)
}

func TestPipelineUnsupportedTypeIsFatal(t *testing.T) {
	calls := 0
	vectors := &fakeVectorStore{}
	docs := &fakeDocStore{}
	p := newTestPipeline("whatever", &calls, vectors, docs, Options{})

	req := testRequest()
	req.Filename = "binary.exe"
	reporter := &captureReporter{}
	_, err := p.Run(context.Background(), req, reporter)
	require.Error(t, err)

	assert.Empty(t, docs.created)
	final := reporter.events[len(reporter.events)-1]
	assert.Equal(t, StageError, final.Stage)
}

func TestPipelineExtractionFailureIsFatal(t *testing.T) {
	vectors := &fakeVectorStore{}
	docs := &fakeDocStore{}
	embed := func(ctx context.Context, chunk string) ([]float32, error) { return []float32{1}, nil }
	p := NewPipeline(&fakeExtractor{err: errors.New("corrupt pdf")}, embed, vectors, docs, Options{})

	reporter := &captureReporter{}
	_, err := p.Run(context.Background(), testRequest(), reporter)
	require.Error(t, err)
	assert.Empty(t, docs.created)
	assert.Equal(t, StageError, reporter.events[len(reporter.events)-1].Stage)
}

func TestPipelineVectorStoreFailureIsWarning(t *testing.T) {
	calls := 0
	vectors := &fakeVectorStore{err: errors.New("collection missing")}
	docs := &fakeDocStore{}
	p := newTestPipeline(strings.Repeat("b", 250), &calls, vectors, docs, Options{ChunkSize: 100, ChunkOverlap: 0})

	reporter := &captureReporter{}
	summary, err := p.Run(context.Background(), testRequest(), reporter)
	require.NoError(t, err)

	// Metadata visibility wins over vector completeness.
	require.Len(t, docs.created, 1)
	require.NotEmpty(t, reporter.warnings())
	assert.Equal(t, StageComplete, reporter.events[len(reporter.events)-1].Stage)
	assert.Equal(t, 3, summary.ChunksStored)
}

func TestPipelineRelationalInsertFailureIsFatal(t *testing.T) {
	calls := 0
	vectors := &fakeVectorStore{}
	docs := &fakeDocStore{err: errors.New("connection refused")}
	p := newTestPipeline(strings.Repeat("c", 250), &calls, vectors, docs, Options{ChunkSize: 100, ChunkOverlap: 0})

	reporter := &captureReporter{}
	_, err := p.Run(context.Background(), testRequest(), reporter)
	require.Error(t, err)

	// Already-upserted vectors stay behind; there is no compensating delete.
	assert.Len(t, vectors.upserts, 1)
	assert.Equal(t, StageError, reporter.events[len(reporter.events)-1].Stage)
}

func TestPipelineOversizedDocumentUsesRecursiveSplitter(t *testing.T) {
	calls := 0
	vectors := &fakeVectorStore{}
	docs := &fakeDocStore{}
	text := strings.Repeat("some words in a very long document ", 40) // 1400 runes
	p := newTestPipeline(text, &calls, vectors, docs, Options{ChunkSize: 50, ChunkOverlap: 10, RecursiveThreshold: 100})

	summary, err := p.Run(context.Background(), testRequest(), &captureReporter{})
	require.NoError(t, err)

	require.Len(t, vectors.upserts, 1)
	for i, rec := range vectors.upserts[0] {
		assert.LessOrEqual(t, len([]rune(rec.Text)), 50)
		assert.Equal(t, i, rec.ChunkIndex)
		assert.Equal(t, summary.TotalChunks, rec.ChunkTotal)
	}
}
