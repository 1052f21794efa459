package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragvault/internal/chunker"
)

type captureReporter struct {
	events []Event
}

func (r *captureReporter) Report(event Event) {
	r.events = append(r.events, event)
}

func (r *captureReporter) warnings() []Event {
	var out []Event
	for _, e := range r.events {
		if e.Stage == StageWarning {
			out = append(out, e)
		}
	}
	return out
}

func makeChunks(n int) []chunker.Chunk {
	chunks := make([]chunker.Chunk, n)
	for i := range chunks {
		chunks[i] = chunker.Chunk{Index: i, Total: n, Text: fmt.Sprintf("chunk-%03d", i), Size: 9}
	}
	return chunks
}

func countingEmbed(calls *int, failCall func(int) bool) EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		*calls++
		if failCall != nil && failCall(*calls) {
			return nil, errors.New("provider rate limited")
		}
		return []float32{0.1, 0.2, 0.3}, nil
	}
}

func TestEmbedAllAllSuccess(t *testing.T) {
	calls := 0
	embedder := NewBatchEmbedder(5, 0, 0)
	reporter := &captureReporter{}
	chunks := makeChunks(12)

	result, err := embedder.EmbedAll(context.Background(), chunks, RecordMeta{Filename: "a.txt", Collection: 7, FileType: "txt"}, countingEmbed(&calls, nil), reporter)
	require.NoError(t, err)

	assert.Equal(t, 12, result.Stored)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 12, calls)
	require.Len(t, result.Records, 12)
	for i, rec := range result.Records {
		assert.Equal(t, i, rec.ChunkIndex)
		assert.Equal(t, 12, rec.ChunkTotal)
		assert.Equal(t, chunks[i].Text, rec.Text)
		assert.Equal(t, "a.txt", rec.Filename)
		assert.Equal(t, uint(7), rec.Collection)
		assert.NotEqual(t, rec.ID.String(), "00000000-0000-0000-0000-000000000000")
	}
	assert.Empty(t, reporter.warnings())
}

func TestEmbedAllOneFailingBatch(t *testing.T) {
	calls := 0
	// Batch 2 of [5 5 2] fails on its first chunk, call #6.
	embed := countingEmbed(&calls, func(call int) bool { return call == 6 })
	embedder := NewBatchEmbedder(5, 0, 0)
	reporter := &captureReporter{}

	result, err := embedder.EmbedAll(context.Background(), makeChunks(12), RecordMeta{}, embed, reporter)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Stored)
	assert.Equal(t, 5, result.Skipped)
	assert.Len(t, result.Records, 7)
	// A failing batch is abandoned at the first error.
	assert.Equal(t, 8, calls)

	warnings := reporter.warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, 2, warnings[0].Extra["batch"])
	assert.Equal(t, 5, warnings[0].Extra["skipped"])

	// Surviving records keep document order across the gap.
	assert.Equal(t, 4, result.Records[4].ChunkIndex)
	assert.Equal(t, 10, result.Records[5].ChunkIndex)
}

func TestEmbedAllFinalPartialBatchFails(t *testing.T) {
	calls := 0
	embed := countingEmbed(&calls, func(call int) bool { return call > 10 })
	embedder := NewBatchEmbedder(5, 0, 0)
	reporter := &captureReporter{}

	result, err := embedder.EmbedAll(context.Background(), makeChunks(12), RecordMeta{}, embed, reporter)
	require.NoError(t, err)

	assert.Equal(t, 10, result.Stored)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, reporter.warnings(), 1)
	assert.Equal(t, 2, reporter.warnings()[0].Extra["skipped"])
}

func TestEmbedAllVectorSizeMismatchFailsBatchOnly(t *testing.T) {
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	embedder := NewBatchEmbedder(5, 0, 4)
	reporter := &captureReporter{}

	result, err := embedder.EmbedAll(context.Background(), makeChunks(7), RecordMeta{}, embed, reporter)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stored)
	assert.Equal(t, 7, result.Skipped)
	require.Len(t, reporter.warnings(), 2)
	assert.Contains(t, reporter.warnings()[0].Extra["error"], "does not match collection size")
}

func TestEmbedAllProgressSpansEmbeddingRange(t *testing.T) {
	calls := 0
	embedder := NewBatchEmbedder(5, 0, 0)
	reporter := &captureReporter{}

	_, err := embedder.EmbedAll(context.Background(), makeChunks(20), RecordMeta{}, countingEmbed(&calls, nil), reporter)
	require.NoError(t, err)

	var percents []int
	for _, e := range reporter.events {
		if e.Stage == StageEmbedding {
			percents = append(percents, e.Percent)
		}
	}
	assert.Equal(t, []int{40, 50, 60, 70}, percents)
}

func TestEmbedAllEmptyInput(t *testing.T) {
	calls := 0
	embedder := NewBatchEmbedder(5, 0, 0)
	result, err := embedder.EmbedAll(context.Background(), nil, RecordMeta{}, countingEmbed(&calls, nil), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Stored)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, calls)
}

func TestEmbedAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	embedder := NewBatchEmbedder(5, 0, 0)
	_, err := embedder.EmbedAll(ctx, makeChunks(12), RecordMeta{}, countingEmbed(&calls, nil), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "canceled"))
	assert.Zero(t, calls)
}
