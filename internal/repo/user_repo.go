package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/pantry-bot/internal/domain"
)

// RegisterUser records userID as a reminder recipient. Registering an
// existing user is a no-op.
func RegisterUser(ctx context.Context, db *gorm.DB, userID string, now time.Time) error {
	u := &domain.User{UserID: userID, CreatedAt: now.UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(u).Error
}

// ListUserIDs returns every registered user id in ascending order.
func ListUserIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	ids := []string{}
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Order("user_id asc").
		Pluck("user_id", &ids).Error
	return ids, err
}
