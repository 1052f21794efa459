package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ragvault/internal/chunker"
	"ragvault/internal/extract"
	"ragvault/internal/model"
)

const previewLimit = 500

// Extractor is the text-extraction collaborator.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// Options tunes chunking and embedding for a pipeline.
type Options struct {
	ChunkSize          int
	ChunkOverlap       int
	RecursiveThreshold int // rune count above which overlap chunking is traded for the bounded recursive splitter
	BatchSize          int
	BatchDelay         time.Duration
}

func (o *Options) normalize() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 4000
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = o.ChunkSize / 4
	}
	if o.RecursiveThreshold <= 0 {
		o.RecursiveThreshold = 50000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = defaultBatchDelay
	}
}

// Request describes one ingestion run.
type Request struct {
	UserID           uint
	CollectionID     uint
	VectorCollection string // vector-index namespace
	VectorSize       int    // declared dimensionality of the namespace
	Filename         string
	Data             []byte
}

// Summary is the final accounting of a run, mirrored into the terminal
// progress event. A run with skipped chunks is still a success; callers
// detect degraded ingestion from the tallies, not from an error.
type Summary struct {
	Document         *model.Document `json:"document"`
	TotalChunks      int             `json:"total_chunks"`
	ChunksStored     int             `json:"chunks_stored"`
	ChunksSkipped    int             `json:"chunks_skipped"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
}

// Pipeline runs one upload through extraction, chunking, batched embedding
// and the two-phase store write, emitting staged progress along the way.
// Each run is a single sequential task; batches are processed one at a time
// on purpose, to respect provider rate limits.
type Pipeline struct {
	extractor Extractor
	embed     EmbedFunc
	writer    *StoreWriter
	opts      Options
}

func NewPipeline(extractor Extractor, embed EmbedFunc, vectors VectorStore, documents DocumentStore, opts Options) *Pipeline {
	opts.normalize()
	return &Pipeline{
		extractor: extractor,
		embed:     embed,
		writer:    NewStoreWriter(vectors, documents),
		opts:      opts,
	}
}

// Run executes the full state machine: validation, extracting, chunking,
// embedding, storing, finalizing, then exactly one of complete or error.
// From embedding onward per-batch failures are absorbed as warnings; only
// precondition failures and the relational insert reaching no row are fatal.
func (p *Pipeline) Run(ctx context.Context, req Request, rep Reporter) (*Summary, error) {
	started := time.Now()
	reporter := newMonotonicReporter(rep)

	fail := func(err error) (*Summary, error) {
		reporter.Report(Event{Stage: StageError, Message: err.Error()})
		return nil, err
	}

	reporter.Report(Event{Stage: StageValidation, Message: "validating upload", Percent: percentValidation})
	if req.Filename == "" || len(req.Data) == 0 {
		return fail(fmt.Errorf("empty upload"))
	}
	if !extract.Supported(req.Filename) {
		return fail(fmt.Errorf("unsupported file type: %s", req.Filename))
	}

	reporter.Report(Event{Stage: StageExtracting, Message: "extracting text", Percent: percentExtracting})
	if extract.IsImage(req.Filename) {
		reporter.Report(Event{Stage: StageExtracting, Message: "describing image content", Percent: percentImageDesc})
	}
	text, err := p.extractor.Extract(ctx, req.Filename, req.Data)
	if err != nil {
		return fail(err)
	}
	text = strings.TrimSpace(text)

	chunks := p.chunk(text)
	reporter.Report(Event{
		Stage:   StageChunking,
		Message: fmt.Sprintf("split into %d chunks", len(chunks)),
		Percent: percentChunking,
		Extra:   map[string]any{"total_chunks": len(chunks)},
	})

	embedder := NewBatchEmbedder(p.opts.BatchSize, p.opts.BatchDelay, req.VectorSize)
	meta := RecordMeta{
		Filename:   req.Filename,
		Collection: req.CollectionID,
		FileType:   extract.FileType(req.Filename),
	}
	reporter.Report(Event{Stage: StageEmbedding, Message: "generating embeddings", Percent: percentEmbedStart})
	embedded, err := embedder.EmbedAll(ctx, chunks, meta, p.embed, reporter)
	if err != nil {
		return fail(err)
	}

	reporter.Report(Event{Stage: StageStoring, Message: "storing vectors and metadata", Percent: percentStoring})
	doc := &model.Document{
		UserID:         req.UserID,
		CollectionID:   req.CollectionID,
		Filename:       req.Filename,
		FileType:       meta.FileType,
		Content:        text,
		ContentPreview: preview(text),
	}
	doc, err = p.writer.Write(ctx, req.VectorCollection, embedded.Records, doc, reporter)
	if err != nil {
		return fail(err)
	}

	reporter.Report(Event{Stage: StageFinalizing, Message: "finalizing", Percent: percentFinalizing})

	summary := &Summary{
		Document:         doc,
		TotalChunks:      len(chunks),
		ChunksStored:     embedded.Stored,
		ChunksSkipped:    embedded.Skipped,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
	}
	reporter.Report(Event{
		Stage:   StageComplete,
		Message: fmt.Sprintf("ingested %q: %d/%d chunks stored", req.Filename, summary.ChunksStored, summary.TotalChunks),
		Percent: percentComplete,
		Extra: map[string]any{
			"document_id":        doc.ID,
			"total_chunks":       summary.TotalChunks,
			"chunks_stored":      summary.ChunksStored,
			"chunks_skipped":     summary.ChunksSkipped,
			"processing_time_ms": summary.ProcessingTimeMs,
		},
	})
	return summary, nil
}

// chunk picks the splitter by document size: small documents keep overlap for
// retrieval continuity, oversized ones trade it for the bounded recursive
// pass.
func (p *Pipeline) chunk(text string) []chunker.Chunk {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= p.opts.RecursiveThreshold {
		return chunker.Split(text, p.opts.ChunkSize, p.opts.ChunkOverlap)
	}
	pieces := chunker.SplitRecursive(text, p.opts.ChunkSize)
	chunks := make([]chunker.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = chunker.Chunk{
			Index: i,
			Total: len(pieces),
			Text:  piece,
			Size:  utf8.RuneCountInString(piece),
		}
	}
	return chunks
}

func preview(text string) string {
	if len(text) <= previewLimit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit])
}
