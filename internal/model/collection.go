package model

import "time"

// Collection is a named partition of the vector index. VectorCollection is the
// backing index namespace, VectorSize the dimensionality declared at creation
// time; every vector upserted into the namespace must match it.
type Collection struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Name             string    `gorm:"size:128;not null" json:"name"`
	VectorCollection string    `gorm:"size:64;not null;uniqueIndex" json:"vector_collection"`
	VectorSize       int       `gorm:"not null" json:"vector_size"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
