package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image is a remote image registered with the proxy.
type Image struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RemoteURL string    `gorm:"column:remote_url;not null"`
	Ext       string    `gorm:"column:ext;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
