// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Ingredient
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Id discipline:
//
// Ingredient ids are assigned by the application, not by SQLite. New rows get
// max(id)+1 and ReindexIngredients closes the gaps left by deletions, so the
// ids always form the contiguous sequence 1..N that users see in the
// inventory listing. Callers must run CreateIngredient and the
// delete+reindex pair inside one transaction (see services.Inventory).
//
// Error semantics:
//   - When an ingredient is not found, functions return ErrNotFound.
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/pantry-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ListIngredients returns every ingredient ordered by id ascending. It
// returns an empty slice when the inventory is empty.
func ListIngredients(ctx context.Context, db *gorm.DB) ([]domain.Ingredient, error) {
	out := []domain.Ingredient{}
	err := db.WithContext(ctx).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// GetIngredient fetches a single ingredient by id, or ErrNotFound.
func GetIngredient(ctx context.Context, db *gorm.DB, id int) (*domain.Ingredient, error) {
	var in domain.Ingredient
	if err := db.WithContext(ctx).Where("id = ?", id).First(&in).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

// NextIngredientID returns max(id)+1, or 1 for an empty table.
func NextIngredientID(ctx context.Context, db *gorm.DB) (int, error) {
	var maxID int64
	row := db.WithContext(ctx).
		Model(&domain.Ingredient{}).
		Select("COALESCE(MAX(id), 0)").
		Row()
	if err := row.Scan(&maxID); err != nil {
		return 0, err
	}
	return int(maxID) + 1, nil
}

// CreateIngredient inserts a new ingredient with the next free id.
// date must already be validated and formatted with domain.DateLayout.
func CreateIngredient(ctx context.Context, db *gorm.DB, name, date string, now time.Time) (*domain.Ingredient, error) {
	id, err := NextIngredientID(ctx, db)
	if err != nil {
		return nil, err
	}
	in := &domain.Ingredient{
		ID:             id,
		Name:           name,
		ExpirationDate: date,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if err := db.WithContext(ctx).Create(in).Error; err != nil {
		return nil, err
	}
	return in, nil
}

// DeleteIngredients removes all rows whose id is in ids and reports how many
// were actually deleted. Unknown ids are ignored.
func DeleteIngredients(ctx context.Context, db *gorm.DB, ids []int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&domain.Ingredient{})
	return res.RowsAffected, res.Error
}

// ReindexIngredients renumbers the remaining rows to 1..N, preserving their
// relative id order. Rows are moved in ascending order, so the target slot is
// always free when it is written.
func ReindexIngredients(ctx context.Context, db *gorm.DB) error {
	var ids []int
	if err := db.WithContext(ctx).
		Model(&domain.Ingredient{}).
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	for i, old := range ids {
		want := i + 1
		if old == want {
			continue
		}
		if err := db.WithContext(ctx).
			Exec("UPDATE ingredients SET id = ? WHERE id = ?", want, old).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpdateIngredient applies the non-nil fields to the ingredient identified by
// id. It returns ErrNotFound when no row matched.
func UpdateIngredient(ctx context.Context, db *gorm.DB, id int, name, date *string) error {
	fields := map[string]any{}
	if name != nil {
		fields["name"] = *name
	}
	if date != nil {
		fields["expiration_date"] = *date
	}
	if len(fields) == 0 {
		// Nothing to change; still report whether the row exists.
		_, err := GetIngredient(ctx, db, id)
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.Ingredient{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIngredientsExpiringBy returns all ingredients whose expiration date is
// on or before cutoff (a domain.DateLayout string), ordered by id. Already
// expired items are included.
func ListIngredientsExpiringBy(ctx context.Context, db *gorm.DB, cutoff string) ([]domain.Ingredient, error) {
	out := []domain.Ingredient{}
	err := db.WithContext(ctx).
		Where("expiration_date <= ?", cutoff).
		Order("id asc").
		Find(&out).Error
	return out, err
}
