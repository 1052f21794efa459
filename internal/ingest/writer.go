package ingest

import (
	"context"
	"fmt"
	"log"

	"ragvault/internal/model"
)

// VectorStore is the vector-index collaborator, consumed through upsert only.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, records []Record) error
}

// DocumentStore is the relational collaborator; one insert per ingestion run.
type DocumentStore interface {
	Create(doc *model.Document) error
}

// StoreWriter persists one run's output: all surviving vector records in a
// single upsert, then exactly one document row. The two writes are not
// atomic. A vector upsert failure is logged and surfaced as a warning but
// never blocks the document row; the document being discoverable in listings
// matters more than vector completeness. Only the relational insert failing
// is fatal, since without the row the document has no identity.
type StoreWriter struct {
	vectors   VectorStore
	documents DocumentStore
}

func NewStoreWriter(vectors VectorStore, documents DocumentStore) *StoreWriter {
	return &StoreWriter{vectors: vectors, documents: documents}
}

// Write upserts records into the named vector collection and inserts the
// document row. The row is written even when records is empty, so an upload
// that produced nothing embeddable still leaves a trace.
func (w *StoreWriter) Write(ctx context.Context, collection string, records []Record, doc *model.Document, reporter Reporter) (*model.Document, error) {
	if reporter == nil {
		reporter = NopReporter()
	}

	if len(records) > 0 {
		if err := w.vectors.Upsert(ctx, collection, records); err != nil {
			log.Printf("vector upsert failed for %q, document row will still be written: %v", doc.Filename, err)
			reporter.Report(Event{
				Stage:   StageWarning,
				Message: fmt.Sprintf("vector store rejected %d records", len(records)),
				Extra:   map[string]any{"error": err.Error()},
			})
		}
	}

	if err := w.documents.Create(doc); err != nil {
		return nil, fmt.Errorf("insert document record failed: %w", err)
	}
	return doc, nil
}
