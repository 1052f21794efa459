package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ragvault/internal/events"
	"ragvault/internal/extract"
	"ragvault/internal/ingest"
	"ragvault/internal/model"
	"ragvault/internal/platform/qdrant"
	"ragvault/internal/platform/rabbitmq"
	"ragvault/internal/repository"
)

var ErrFileTooLarge = errors.New("file too large")

// IngestService accepts uploads, queues them for background ingestion, and
// runs the pipeline for dequeued jobs. The synchronous path runs the same
// pipeline inline for callers that want the summary in the response.
type IngestService struct {
	collections *repository.CollectionRepository
	documents   *repository.DocumentRepository
	vectors     *qdrant.Client
	embedder    Embedder
	extractor   ingest.Extractor
	publisher   *rabbitmq.JobPublisher
	progress    *events.Publisher
	opts        ingest.Options
	maxBytes    int
}

func NewIngestService(
	collections *repository.CollectionRepository,
	documents *repository.DocumentRepository,
	vectors *qdrant.Client,
	embedder Embedder,
	extractor ingest.Extractor,
	publisher *rabbitmq.JobPublisher,
	progress *events.Publisher,
	opts ingest.Options,
	maxBytes int,
) *IngestService {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &IngestService{
		collections: collections,
		documents:   documents,
		vectors:     vectors,
		embedder:    embedder,
		extractor:   extractor,
		publisher:   publisher,
		progress:    progress,
		opts:        opts,
		maxBytes:    maxBytes,
	}
}

type UploadInput struct {
	UserID       uint
	CollectionID uint
	Filename     string
	Data         []byte
}

func (s *IngestService) validate(input UploadInput) (*model.Collection, error) {
	if input.UserID == 0 || input.CollectionID == 0 || input.Filename == "" || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}
	if !extract.Supported(input.Filename) {
		return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedType, input.Filename)
	}
	if len(input.Data) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	collection, err := s.collections.GetByIDAndUserID(input.CollectionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, ErrCollectionNotFound
	}
	return collection, nil
}

// Enqueue validates the upload and queues an ingestion job. The returned run
// ID is the handle for the progress event stream.
func (s *IngestService) Enqueue(ctx context.Context, input UploadInput) (string, error) {
	if _, err := s.validate(input); err != nil {
		return "", err
	}

	job := model.IngestJob{
		RunID:        uuid.NewString(),
		UserID:       input.UserID,
		CollectionID: input.CollectionID,
		Filename:     input.Filename,
		Data:         input.Data,
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		return "", fmt.Errorf("queue ingest job failed: %w", err)
	}
	return job.RunID, nil
}

// RunSync validates and ingests the upload inline, streaming progress under
// a fresh run ID and returning the summary.
func (s *IngestService) RunSync(ctx context.Context, input UploadInput) (string, *ingest.Summary, error) {
	if _, err := s.validate(input); err != nil {
		return "", nil, err
	}
	job := model.IngestJob{
		RunID:        uuid.NewString(),
		UserID:       input.UserID,
		CollectionID: input.CollectionID,
		Filename:     input.Filename,
		Data:         input.Data,
	}
	summary, err := s.Run(ctx, job)
	return job.RunID, summary, err
}

// Run executes the pipeline for a job, publishing progress events under the
// job's run ID. Called by the queue worker and the synchronous path.
func (s *IngestService) Run(ctx context.Context, job model.IngestJob) (*ingest.Summary, error) {
	collection, err := s.collections.GetByIDAndUserID(job.CollectionID, job.UserID)
	if err != nil {
		return nil, err
	}
	reporter := s.progress.Reporter(ctx, job.RunID)
	if collection == nil {
		reporter.Report(ingest.Event{Stage: ingest.StageError, Message: "collection not found"})
		return nil, ErrCollectionNotFound
	}

	pipeline := ingest.NewPipeline(
		s.extractor,
		s.embedder.Embed,
		&vectorStoreAdapter{client: s.vectors},
		s.documents,
		s.opts,
	)
	req := ingest.Request{
		UserID:           job.UserID,
		CollectionID:     job.CollectionID,
		VectorCollection: collection.VectorCollection,
		VectorSize:       collection.VectorSize,
		Filename:         job.Filename,
		Data:             job.Data,
	}
	return pipeline.Run(ctx, req, reporter)
}

// Subscribe exposes the progress stream for a run.
func (s *IngestService) Subscribe(ctx context.Context, runID string) (<-chan ingest.Event, func()) {
	return s.progress.Subscribe(ctx, runID)
}

// vectorStoreAdapter maps embedded records onto qdrant points. Payload keys
// line up with what search and the delete filter read back.
type vectorStoreAdapter struct {
	client *qdrant.Client
}

func (a *vectorStoreAdapter) Upsert(ctx context.Context, collection string, records []ingest.Record) error {
	points := make([]qdrant.Point, len(records))
	for i, rec := range records {
		points[i] = qdrant.Point{
			ID:     rec.ID.String(),
			Vector: rec.Vector,
			Payload: map[string]interface{}{
				"text":          rec.Text,
				"chunk_index":   rec.ChunkIndex,
				"chunk_total":   rec.ChunkTotal,
				"filename":      rec.Filename,
				"collection_id": rec.Collection,
				"file_type":     rec.FileType,
				"created_at":    rec.CreatedAt.UTC().Format(time.RFC3339),
			},
		}
	}
	return a.client.Upsert(ctx, collection, points)
}
