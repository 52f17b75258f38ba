package database

import (
	"time"
)

// AuditLog represents system audit log entries
type AuditLog struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      *uint     `gorm:"index" json:"user_id"`
	Action      string    `gorm:"size:50;not null" json:"action"`
	EntityType  string    `gorm:"size:50;not null" json:"entity_type"`
	EntityID    uint      `gorm:"not null" json:"entity_id"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
