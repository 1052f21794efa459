package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ragvault/internal/model"
	"ragvault/internal/platform/qdrant"
	"ragvault/internal/repository"
)

var ErrDocumentNotFound = errors.New("document not found")

// Embedder embeds a single text. Satisfied by *ai.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type DocumentService struct {
	documents   *repository.DocumentRepository
	collections *repository.CollectionRepository
	vectors     *qdrant.Client
	embedder    Embedder
}

func NewDocumentService(
	documents *repository.DocumentRepository,
	collections *repository.CollectionRepository,
	vectors *qdrant.Client,
	embedder Embedder,
) *DocumentService {
	return &DocumentService{
		documents:   documents,
		collections: collections,
		vectors:     vectors,
		embedder:    embedder,
	}
}

func (s *DocumentService) List(userID, collectionID uint) ([]model.Document, error) {
	if userID == 0 || collectionID == 0 {
		return nil, ErrInvalidInput
	}
	collection, err := s.collections.GetByIDAndUserID(collectionID, userID)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, ErrCollectionNotFound
	}
	return s.documents.ListByUserIDAndCollectionID(userID, collectionID)
}

func (s *DocumentService) Get(id, userID uint) (*model.Document, error) {
	if id == 0 || userID == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.documents.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes the document row and its vectors. Vector cleanup failures
// are logged, not fatal; orphaned points are unreachable once the row is
// gone and can be swept later.
func (s *DocumentService) Delete(ctx context.Context, id, userID uint) error {
	doc, err := s.Get(id, userID)
	if err != nil {
		return err
	}

	collection, err := s.collections.GetByIDAndUserID(doc.CollectionID, userID)
	if err != nil {
		return err
	}
	if collection != nil {
		err := s.vectors.DeleteByFilter(ctx, collection.VectorCollection, map[string]interface{}{
			"filename":      doc.Filename,
			"collection_id": doc.CollectionID,
		})
		if err != nil && !errors.Is(err, qdrant.ErrCollectionMissing) {
			log.Printf("delete vectors for document %d failed: %v", doc.ID, err)
		}
	}
	return s.documents.DeleteByIDAndUserID(id, userID)
}

type SearchInput struct {
	UserID       uint
	CollectionID uint
	Query        string
	Limit        int
}

type SearchResult struct {
	Score      float32                `json:"score"`
	Text       string                 `json:"text"`
	ChunkIndex int                    `json:"chunk_index"`
	Filename   string                 `json:"filename"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Search embeds the query and returns the nearest chunks from the
// collection's vector store.
func (s *DocumentService) Search(ctx context.Context, input SearchInput) ([]SearchResult, error) {
	if input.UserID == 0 || input.CollectionID == 0 || input.Query == "" {
		return nil, ErrInvalidInput
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	collection, err := s.collections.GetByIDAndUserID(input.CollectionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, ErrCollectionNotFound
	}

	vector, err := s.embedder.Embed(ctx, input.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	hits, err := s.vectors.Search(ctx, collection.VectorCollection, vector, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		result := SearchResult{
			Score:   hit.Score,
			Payload: hit.Payload,
		}
		if text, ok := hit.Payload["text"].(string); ok {
			result.Text = text
		}
		if filename, ok := hit.Payload["filename"].(string); ok {
			result.Filename = filename
		}
		if idx, ok := hit.Payload["chunk_index"].(float64); ok {
			result.ChunkIndex = int(idx)
		}
		results = append(results, result)
	}
	return results, nil
}
