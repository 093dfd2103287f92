// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for ProcessedEvent,
// which backs webhook redelivery suppression and Idempotency-Key replay on
// the direct turns endpoint.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/pantry-bot/internal/domain"
)

// ErrDuplicate indicates that a processed-event record already exists for the
// given (source, user_id, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// GetProcessedEvent returns a non-expired record or ErrNotFound.
func GetProcessedEvent(ctx context.Context, db *gorm.DB, source, userID, key string, now time.Time) (*domain.ProcessedEvent, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ProcessedEvent
	err := db.WithContext(ctx).
		Where("source = ? AND user_id = ? AND key = ? AND expires_at > ?", source, userID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateProcessedEvent inserts a record and returns ErrDuplicate on unique violation.
func CreateProcessedEvent(ctx context.Context, db *gorm.DB, source, userID, key, reply string, now time.Time, ttl time.Duration) (*domain.ProcessedEvent, error) {
	now = now.UTC()
	rec := &domain.ProcessedEvent{
		ID:        uuid.NewString(),
		Source:    source,
		UserID:    userID,
		Key:       key,
		Reply:     reply,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredEvents deletes records whose expiry is at or before now.
func PurgeExpiredEvents(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.ProcessedEvent{})
	return res.RowsAffected, res.Error
}

// SetProcessedEventReply stores the reply on an existing record, or returns
// ErrNotFound when there is none.
func SetProcessedEventReply(ctx context.Context, db *gorm.DB, source, userID, key, reply string) error {
	res := db.WithContext(ctx).
		Model(&domain.ProcessedEvent{}).
		Where("source = ? AND user_id = ? AND key = ?", source, userID, key).
		Update("reply", reply)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
