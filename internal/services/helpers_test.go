package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/tbourn/pantry-bot/internal/repo"
)

// today for every test that depends on the calendar.
var testNow = time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "pantry.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testDates() DatePolicy {
	return DatePolicy{Clock: clockwork.NewFakeClockAt(testNow), Location: time.UTC, RejectPast: true}
}

func newTestInventory(t *testing.T) *Inventory {
	t.Helper()
	return NewInventory(newTestDB(t), testDates())
}

// brokenInventory returns an Inventory whose database has been closed, so
// every call fails with a storage error.
func brokenInventory(t *testing.T) *Inventory {
	t.Helper()
	db := newTestDB(t)
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
	return NewInventory(db, testDates())
}

// ----- Fakes -----

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	wait    time.Duration
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.wait > 0 {
		select {
		case <-time.After(g.wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, g.err
}

type pushCall struct{ userID, text string }

type fakePusher struct {
	mu     sync.Mutex
	calls  []pushCall
	failOn map[string]bool
	panics map[string]bool
}

func (p *fakePusher) Push(ctx context.Context, userID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pushCall{userID, text})
	if p.panics[userID] {
		panic("transport exploded")
	}
	if p.failOn[userID] {
		return errors.New("push rejected")
	}
	return nil
}

func (p *fakePusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
