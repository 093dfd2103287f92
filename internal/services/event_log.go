package services

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/pantry-bot/internal/repo"
)

// DefaultEventTTL is how long processed events are remembered.
const DefaultEventTTL = 24 * time.Hour

// ErrAlreadyProcessed is returned by Claim when the event was seen before.
var ErrAlreadyProcessed = errors.New("event already processed")

// EventLog remembers which inbound events have been handled, keyed by
// (source, user, key). Webhook handlers use the platform event id as key to
// drop redeliveries; the turns API uses the client's Idempotency-Key and
// stores the reply for replay.
type EventLog struct {
	DB    *gorm.DB
	TTL   time.Duration
	Clock clockwork.Clock
}

func (l *EventLog) ttl() time.Duration {
	if l.TTL <= 0 {
		return DefaultEventTTL
	}
	return l.TTL
}

func (l *EventLog) now() time.Time {
	if l.Clock == nil {
		return time.Now().UTC()
	}
	return l.Clock.Now().UTC()
}

// Lookup returns the stored reply for a live record. found is false when
// there is none.
func (l *EventLog) Lookup(ctx context.Context, source, userID, key string) (reply string, found bool, err error) {
	ctx, span := otel.Tracer("services/events").Start(ctx, "EventLog.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("event.source", source))

	rec, err := repo.GetProcessedEvent(ctx, l.DB, source, userID, key, l.now())
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, storageErr("lookup event", err)
	}
	return rec.Reply, true, nil
}

// Claim records (source, userID, key) before the event is handled. It
// returns ErrAlreadyProcessed when another delivery got there first. An
// expired record is purged and reclaimed.
func (l *EventLog) Claim(ctx context.Context, source, userID, key string) error {
	return l.Record(ctx, source, userID, key, "")
}

// Record stores reply under (source, userID, key); see Claim.
func (l *EventLog) Record(ctx context.Context, source, userID, key, reply string) error {
	ctx, span := otel.Tracer("services/events").Start(ctx, "EventLog.Record")
	defer span.End()
	span.SetAttributes(attribute.String("event.source", source))

	_, err := repo.CreateProcessedEvent(ctx, l.DB, source, userID, key, reply, l.now(), l.ttl())
	if errors.Is(err, repo.ErrDuplicate) {
		// The unique index also covers expired rows; clear them and retry once.
		if n, perr := repo.PurgeExpiredEvents(ctx, l.DB, l.now()); perr == nil && n > 0 {
			_, err = repo.CreateProcessedEvent(ctx, l.DB, source, userID, key, reply, l.now(), l.ttl())
		}
	}
	switch {
	case errors.Is(err, repo.ErrDuplicate):
		return ErrAlreadyProcessed
	case err != nil:
		span.RecordError(err)
		return storageErr("record event", err)
	}
	return nil
}

// Complete attaches the reply to a record created by Claim, making it
// available to Lookup.
func (l *EventLog) Complete(ctx context.Context, source, userID, key, reply string) error {
	ctx, span := otel.Tracer("services/events").Start(ctx, "EventLog.Complete")
	defer span.End()

	err := repo.SetProcessedEventReply(ctx, l.DB, source, userID, key, reply)
	if errors.Is(err, repo.ErrNotFound) {
		return l.Record(ctx, source, userID, key, reply)
	}
	if err != nil {
		span.RecordError(err)
		return storageErr("complete event", err)
	}
	return nil
}

// Purge deletes expired records and reports how many were removed.
func (l *EventLog) Purge(ctx context.Context) (int64, error) {
	n, err := repo.PurgeExpiredEvents(ctx, l.DB, l.now())
	if err != nil {
		return 0, storageErr("purge events", err)
	}
	return n, nil
}
