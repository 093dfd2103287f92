package domain

import "time"

// ProcessedEvent records an inbound turn that has already been handled,
// keyed by (source, user_id, key). For webhooks the key is the platform event
// id, so redeliveries are dropped; for the direct turns API it is the
// client's Idempotency-Key, and Reply lets the original answer be replayed.
type ProcessedEvent struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Source    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_event_source_user_key,priority:1"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_event_source_user_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_event_source_user_key,priority:3"`
	Reply     string    `gorm:"type:TEXT NOT NULL;default:''"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedEvent) TableName() string { return "processed_events" }
