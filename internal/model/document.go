package model

import "time"

// Document is the relational record of one ingested upload. It is created
// once per ingestion run, after the embedding and vector-store stage, even
// when zero chunks made it into the vector index.
type Document struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	CollectionID   uint      `gorm:"not null;index" json:"collection_id"`
	Filename       string    `gorm:"size:256;not null" json:"filename"`
	FileType       string    `gorm:"size:16;not null" json:"file_type"`
	ContentPreview string    `gorm:"size:500" json:"content_preview"`
	Content        string    `gorm:"type:longtext" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
