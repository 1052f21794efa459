package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ragvault/internal/model"
)

type CollectionRepository struct {
	db *gorm.DB
}

func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func (r *CollectionRepository) Create(collection *model.Collection) error {
	if err := r.db.Create(collection).Error; err != nil {
		return fmt.Errorf("create collection failed: %w", err)
	}
	return nil
}

func (r *CollectionRepository) ListByUserID(userID uint) ([]model.Collection, error) {
	var collections []model.Collection
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&collections).Error; err != nil {
		return nil, fmt.Errorf("list collections failed: %w", err)
	}
	return collections, nil
}

func (r *CollectionRepository) GetByIDAndUserID(id, userID uint) (*model.Collection, error) {
	var collection model.Collection
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).
		First(&collection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query collection failed: %w", err)
	}
	return &collection, nil
}

func (r *CollectionRepository) DeleteByIDAndUserID(id, userID uint) error {
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Collection{}).Error; err != nil {
		return fmt.Errorf("delete collection failed: %w", err)
	}
	return nil
}
