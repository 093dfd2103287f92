package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/pantry-bot/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// A single connection keeps the shared in-memory database alive and
		// serializes writers the way the file-backed database would.
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestIngredientsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := IngredientsStats(context.Background(), db)
	if err == nil {
		t.Fatalf("expected error due to missing ingredients table")
	}
}

func TestIngredientsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Ingredient{})
	count, maxAt, err := IngredientsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("IngredientsStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestIngredientsStats_CountAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Ingredient{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max
	t3 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	for i, ts := range []time.Time{t1, t2, t3} {
		in := &domain.Ingredient{ID: i + 1, Name: fmt.Sprintf("i%d", i), ExpirationDate: "2030-01-01", CreatedAt: ts, UpdatedAt: ts}
		if err := db.Create(in).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	count, maxAt, err := IngredientsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("IngredientsStats error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected maxUpdatedAt %v, got %v", t2, maxAt)
	}
}

// Force the second query (SELECT updated_at ...) to fail by renaming the column.
func TestIngredientsStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t, &domain.Ingredient{})

	now := time.Now().UTC()
	if err := db.Create(&domain.Ingredient{ID: 1, Name: "x", ExpirationDate: "2030-01-01", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Exec(`ALTER TABLE ingredients RENAME COLUMN updated_at TO updated_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}

	_, _, err := IngredientsStats(context.Background(), db)
	if err == nil {
		t.Fatalf("expected error from latest-updated select after column rename")
	}
}
