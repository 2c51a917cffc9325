package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is one schemaless record in a named collection. The payload
// lives in a JSONB column so filter expressions can address arbitrary
// fields.
type Document struct {
	ID         string    `gorm:"primaryKey;type:uuid"`
	Collection string    `gorm:"index;not null"`
	Data       []byte    `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (Document) TableName() string {
	return "documents"
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
