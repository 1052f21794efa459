package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"ragvault/internal/model"
	"ragvault/internal/platform/qdrant"
	"ragvault/internal/repository"
)

var ErrCollectionNotFound = errors.New("collection not found")

// Dimensioner reports the vector size of the configured embedding model.
type Dimensioner interface {
	Dimension(ctx context.Context) (int, error)
}

type CollectionService struct {
	collections *repository.CollectionRepository
	documents   *repository.DocumentRepository
	vectors     *qdrant.Client
	embedder    Dimensioner
}

func NewCollectionService(
	collections *repository.CollectionRepository,
	documents *repository.DocumentRepository,
	vectors *qdrant.Client,
	embedder Dimensioner,
) *CollectionService {
	return &CollectionService{
		collections: collections,
		documents:   documents,
		vectors:     vectors,
		embedder:    embedder,
	}
}

type CreateCollectionInput struct {
	UserID     uint
	Name       string
	VectorSize int
}

// Create registers a collection row and provisions its qdrant collection.
// When no vector size is given, the embedding model's dimension is probed
// and used.
func (s *CollectionService) Create(ctx context.Context, input CreateCollectionInput) (*model.Collection, error) {
	name := strings.TrimSpace(input.Name)
	if input.UserID == 0 || name == "" {
		return nil, ErrInvalidInput
	}

	vectorSize := input.VectorSize
	if vectorSize <= 0 {
		dim, err := s.embedder.Dimension(ctx)
		if err != nil {
			return nil, fmt.Errorf("probe embedding dimension failed: %w", err)
		}
		vectorSize = dim
	}

	collection := &model.Collection{
		UserID:           input.UserID,
		Name:             name,
		VectorCollection: "rv_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		VectorSize:       vectorSize,
	}
	if err := s.collections.Create(collection); err != nil {
		return nil, err
	}

	if err := s.vectors.EnsureCollection(ctx, collection.VectorCollection, vectorSize); err != nil {
		// Roll the row back so the user can retry cleanly.
		if delErr := s.collections.DeleteByIDAndUserID(collection.ID, collection.UserID); delErr != nil {
			log.Printf("rollback collection %d failed: %v", collection.ID, delErr)
		}
		return nil, fmt.Errorf("provision vector collection failed: %w", err)
	}
	return collection, nil
}

func (s *CollectionService) List(userID uint) ([]model.Collection, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.collections.ListByUserID(userID)
}

func (s *CollectionService) Get(id, userID uint) (*model.Collection, error) {
	if id == 0 || userID == 0 {
		return nil, ErrInvalidInput
	}
	collection, err := s.collections.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, ErrCollectionNotFound
	}
	return collection, nil
}

// Delete removes the collection, its documents, and its qdrant collection.
// A missing qdrant collection is not an error.
func (s *CollectionService) Delete(ctx context.Context, id, userID uint) error {
	collection, err := s.Get(id, userID)
	if err != nil {
		return err
	}

	if err := s.vectors.DeleteCollection(ctx, collection.VectorCollection); err != nil &&
		!errors.Is(err, qdrant.ErrCollectionMissing) {
		return fmt.Errorf("delete vector collection failed: %w", err)
	}
	if err := s.documents.DeleteByCollectionID(collection.ID); err != nil {
		return err
	}
	return s.collections.DeleteByIDAndUserID(id, userID)
}
