package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ragvault/internal/chunker"
)

const (
	defaultBatchSize  = 5
	defaultBatchDelay = 500 * time.Millisecond
)

// EmbedFunc turns one text into its embedding vector. It is fallible and may
// be rate limited by the provider; failures are absorbed per batch.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Record is one vector with its chunk payload, ready for the vector index.
// Filename and collection are duplicated into the payload so records can be
// looked up standalone; the relational Document row stays the source of truth.
type Record struct {
	ID         uuid.UUID
	Vector     []float32
	Text       string
	ChunkIndex int
	ChunkTotal int
	Filename   string
	Collection uint
	FileType   string
	CreatedAt  time.Time
}

// RecordMeta is the per-document payload attached to every record.
type RecordMeta struct {
	Filename   string
	Collection uint
	FileType   string
}

// EmbedResult carries the surviving records and the authoritative tallies for
// the final summary. Skipped chunks are never silently dropped from the count.
type EmbedResult struct {
	Records []Record
	Stored  int
	Skipped int
}

// BatchEmbedder generates embeddings for an ordered chunk list in fixed-size
// batches. Calls within a batch are sequential to respect provider rate
// limits, with a fixed pause between batches. A failing batch marks all of
// its chunks skipped and the run continues; one bad batch never aborts the
// document.
type BatchEmbedder struct {
	batchSize  int
	batchDelay time.Duration
	vectorSize int // expected dimensionality; 0 disables the check
}

func NewBatchEmbedder(batchSize int, batchDelay time.Duration, vectorSize int) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if batchDelay < 0 {
		batchDelay = defaultBatchDelay
	}
	return &BatchEmbedder{
		batchSize:  batchSize,
		batchDelay: batchDelay,
		vectorSize: vectorSize,
	}
}

// EmbedAll processes chunks batch by batch, reporting embedding progress
// linearly between the embedding checkpoints. It returns an error only on
// context cancellation; provider failures surface as skips and warnings.
func (e *BatchEmbedder) EmbedAll(ctx context.Context, chunks []chunker.Chunk, meta RecordMeta, embed EmbedFunc, reporter Reporter) (*EmbedResult, error) {
	if reporter == nil {
		reporter = NopReporter()
	}
	result := &EmbedResult{}
	if len(chunks) == 0 {
		return result, nil
	}

	totalBatches := (len(chunks) + e.batchSize - 1) / e.batchSize

	for batchNo := 0; batchNo < totalBatches; batchNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lo := batchNo * e.batchSize
		hi := lo + e.batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		batch := chunks[lo:hi]

		records, err := e.embedBatch(ctx, batch, meta, embed)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Skipped += len(batch)
			reporter.Report(Event{
				Stage:   StageWarning,
				Message: fmt.Sprintf("embedding batch %d/%d failed, %d chunks skipped", batchNo+1, totalBatches, len(batch)),
				Extra: map[string]any{
					"batch":   batchNo + 1,
					"batches": totalBatches,
					"skipped": len(batch),
					"error":   err.Error(),
				},
			})
		} else {
			result.Records = append(result.Records, records...)
			result.Stored += len(batch)
		}

		percent := percentEmbedStart + (percentEmbedEnd-percentEmbedStart)*(batchNo+1)/totalBatches
		reporter.Report(Event{
			Stage:   StageEmbedding,
			Message: fmt.Sprintf("embedded batch %d/%d", batchNo+1, totalBatches),
			Percent: percent,
		})

		if batchNo < totalBatches-1 && e.batchDelay > 0 {
			timer := time.NewTimer(e.batchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, nil
}

// embedBatch embeds every chunk of one batch sequentially. The first failure
// poisons the whole batch, including chunks already embedded within it.
func (e *BatchEmbedder) embedBatch(ctx context.Context, batch []chunker.Chunk, meta RecordMeta, embed EmbedFunc) ([]Record, error) {
	records := make([]Record, 0, len(batch))
	now := time.Now().UTC()
	for _, c := range batch {
		vector, err := embed(ctx, c.Text)
		if err != nil {
			return nil, err
		}
		if e.vectorSize > 0 && len(vector) != e.vectorSize {
			return nil, fmt.Errorf("vector size %d does not match collection size %d", len(vector), e.vectorSize)
		}
		records = append(records, Record{
			ID:         uuid.New(),
			Vector:     vector,
			Text:       c.Text,
			ChunkIndex: c.Index,
			ChunkTotal: c.Total,
			Filename:   meta.Filename,
			Collection: meta.Collection,
			FileType:   meta.FileType,
			CreatedAt:  now,
		})
	}
	return records, nil
}
