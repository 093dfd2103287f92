package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/pantry-bot/internal/domain"
)

func TestGetProcessedEvent_EmptyKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.ProcessedEvent{})
	rec, err := GetProcessedEvent(context.Background(), db, "line", "u1", "   ", time.Now().UTC())
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for empty key, got (%v, %v)", rec, err)
	}
}

func TestGetProcessedEvent_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.ProcessedEvent{})
	now := time.Now().UTC()

	exp := &domain.ProcessedEvent{
		ID:        "expired",
		Source:    "line",
		UserID:    "u1",
		Key:       "k1",
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	rec, err := GetProcessedEvent(context.Background(), db, "line", "u1", "k1", now)
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	rec2, err2 := GetProcessedEvent(context.Background(), db, "line", "u1", "missing", now)
	if rec2 != nil || err2 != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec2, err2)
	}
}

func TestCreateAndGetProcessedEvent(t *testing.T) {
	db := newTestDB(t, &domain.ProcessedEvent{})
	start := time.Now().UTC()

	rec, err := CreateProcessedEvent(context.Background(), db, "api", "u9", "k9", "hello", start, 90*time.Minute)
	if err != nil {
		t.Fatalf("CreateProcessedEvent: %v", err)
	}
	if rec.ID == "" || rec.Reply != "hello" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.ExpiresAt.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("unexpected ExpiresAt: %v", rec.ExpiresAt)
	}

	got, err := GetProcessedEvent(context.Background(), db, "api", "u9", "k9", time.Now().UTC())
	if err != nil || got.Reply != "hello" {
		t.Fatalf("GetProcessedEvent: rec=%+v err=%v", got, err)
	}

	// Same key from another source is a distinct record.
	if _, err := CreateProcessedEvent(context.Background(), db, "line", "u9", "k9", "", start, time.Hour); err != nil {
		t.Fatalf("other source: %v", err)
	}

	if _, err := CreateProcessedEvent(context.Background(), db, "api", "u9", "k9", "again", start, time.Hour); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

// Generic DB error path: attempt insert without migrating the table.
func TestCreateProcessedEvent_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateProcessedEvent(context.Background(), db, "line", "u", "k", "", time.Now(), time.Minute)
	if err == nil || err == ErrDuplicate {
		t.Fatalf("expected non-duplicate error, got %v", err)
	}
}

func TestPurgeExpiredEvents(t *testing.T) {
	db := newTestDB(t, &domain.ProcessedEvent{})
	now := time.Now().UTC()
	seed := []*domain.ProcessedEvent{
		{ID: "old", Source: "line", UserID: "u", Key: "a", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)},
		{ID: "new", Source: "line", UserID: "u", Key: "b", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	for _, e := range seed {
		if err := db.Create(e).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	n, err := PurgeExpiredEvents(context.Background(), db, now)
	if err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
}

func TestSetProcessedEventReply(t *testing.T) {
	db := newTestDB(t, &domain.ProcessedEvent{})
	now := time.Now().UTC()
	if _, err := CreateProcessedEvent(context.Background(), db, "api", "u", "k", "", now, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := SetProcessedEventReply(context.Background(), db, "api", "u", "k", "done"); err != nil {
		t.Fatalf("set reply: %v", err)
	}
	got, err := GetProcessedEvent(context.Background(), db, "api", "u", "k", now)
	if err != nil || got.Reply != "done" {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if err := SetProcessedEventReply(context.Background(), db, "api", "u", "missing", "x"); err != ErrNotFound {
		t.Fatalf("missing err = %v; want ErrNotFound", err)
	}
}
