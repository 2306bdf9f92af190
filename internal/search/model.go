package search

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// WasteVector holds a product's passage embedding. It lives in its own table
// so the catalog models stay portable to drivers without the vector type.
type WasteVector struct {
	WasteID   string          `gorm:"type:uuid;primaryKey"`
	Embedding pgvector.Vector `gorm:"type:vector(1024)"`
	UpdatedAt time.Time       `gorm:"not null"`
}

func (WasteVector) TableName() string {
	return "waste_vectors"
}
