package services

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestEventLog_ClaimOnce(t *testing.T) {
	clk := clockwork.NewFakeClockAt(testNow)
	log := &EventLog{DB: newTestDB(t), TTL: time.Hour, Clock: clk}
	ctx := t.Context()

	if err := log.Claim(ctx, "line", "U1", "ev-1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := log.Claim(ctx, "line", "U1", "ev-1"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("second claim err = %v; want ErrAlreadyProcessed", err)
	}
	// Other sources and users are independent.
	if err := log.Claim(ctx, "telegram", "U1", "ev-1"); err != nil {
		t.Fatalf("other source: %v", err)
	}
	if err := log.Claim(ctx, "line", "U2", "ev-1"); err != nil {
		t.Fatalf("other user: %v", err)
	}
}

func TestEventLog_RecordAndLookup(t *testing.T) {
	clk := clockwork.NewFakeClockAt(testNow)
	log := &EventLog{DB: newTestDB(t), TTL: time.Hour, Clock: clk}
	ctx := t.Context()

	if _, found, err := log.Lookup(ctx, "api", "U1", "k"); err != nil || found {
		t.Fatalf("lookup before record: found=%v err=%v", found, err)
	}
	if err := log.Record(ctx, "api", "U1", "k", "Cancelled."); err != nil {
		t.Fatalf("record: %v", err)
	}
	reply, found, err := log.Lookup(ctx, "api", "U1", "k")
	if err != nil || !found || reply != "Cancelled." {
		t.Fatalf("lookup = %q, %v, %v", reply, found, err)
	}
}

func TestEventLog_ClaimThenComplete(t *testing.T) {
	log := &EventLog{DB: newTestDB(t), Clock: clockwork.NewFakeClockAt(testNow)}
	ctx := t.Context()

	if err := log.Claim(ctx, "api", "U1", "k"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if reply, found, _ := log.Lookup(ctx, "api", "U1", "k"); !found || reply != "" {
		t.Fatalf("in-flight lookup = %q, %v", reply, found)
	}
	if err := log.Complete(ctx, "api", "U1", "k", "Deleted ids: 2"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply, _, _ := log.Lookup(ctx, "api", "U1", "k"); reply != "Deleted ids: 2" {
		t.Fatalf("reply = %q", reply)
	}
	// Completing an unclaimed key records it.
	if err := log.Complete(ctx, "api", "U1", "other", "x"); err != nil {
		t.Fatalf("complete unclaimed: %v", err)
	}
}

func TestEventLog_ExpiredRecordsAreReclaimed(t *testing.T) {
	clk := clockwork.NewFakeClockAt(testNow)
	log := &EventLog{DB: newTestDB(t), TTL: time.Minute, Clock: clk}
	ctx := t.Context()

	if err := log.Claim(ctx, "line", "U1", "ev-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	clk.Advance(2 * time.Minute)

	if _, found, _ := log.Lookup(ctx, "line", "U1", "ev-1"); found {
		t.Fatal("expired record still visible")
	}
	if err := log.Claim(ctx, "line", "U1", "ev-1"); err != nil {
		t.Fatalf("reclaim after expiry: %v", err)
	}
	if n, err := log.Purge(ctx); err != nil || n != 0 {
		t.Fatalf("purge = %d, %v", n, err)
	}
}

func TestEventLog_StorageFailure(t *testing.T) {
	db := newTestDB(t)
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
	log := &EventLog{DB: db}

	if err := log.Claim(t.Context(), "line", "U1", "ev"); !errors.Is(err, ErrStorage) {
		t.Fatalf("claim err = %v; want ErrStorage", err)
	}
	if _, _, err := log.Lookup(t.Context(), "line", "U1", "ev"); !errors.Is(err, ErrStorage) {
		t.Fatalf("lookup err = %v; want ErrStorage", err)
	}
}
