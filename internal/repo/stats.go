// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate query used for conditional
// responses (ETag generation) on the inventory listing endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/pantry-bot/internal/domain"
)

// IngredientsStats returns the number of ingredients and the greatest
// UpdatedAt among them. When the inventory is empty, count is 0 and
// maxUpdatedAt is nil.
func IngredientsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Ingredient{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Ingredient{}).
		Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
