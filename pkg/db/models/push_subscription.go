package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PushSubscription is a browser Web Push endpoint, optionally tied to a user.
type PushSubscription struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Endpoint  string     `gorm:"column:endpoint;not null;uniqueIndex"`
	P256dh    string     `gorm:"column:p256dh;not null"`
	Auth      string     `gorm:"column:auth;not null"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	UserAgent *string    `gorm:"column:user_agent"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
