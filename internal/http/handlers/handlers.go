package handlers

import (
	"context"
	"time"

	"github.com/tbourn/pantry-bot/internal/domain"
	"github.com/tbourn/pantry-bot/internal/messenger"
	"github.com/tbourn/pantry-bot/internal/services"
)

//
// Service contracts (context-aware)
//

// Conversation runs one chat turn. It never fails: errors become reply text.
type Conversation interface {
	Handle(ctx context.Context, userID, text string) services.Reply
}

// InventoryReader is the read side of the inventory used by the ops API.
type InventoryReader interface {
	List(ctx context.Context) ([]domain.Ingredient, error)
	ListExpiring(ctx context.Context, withinDays int) ([]domain.Ingredient, error)
	// Stats returns the item count and latest update time, for ETags.
	Stats(ctx context.Context) (int64, *time.Time, error)
}

// ReminderRunner triggers one reminder cycle.
type ReminderRunner interface {
	RunOnce(ctx context.Context) (services.RunReport, error)
}

// EventStore deduplicates inbound events and stores replies for replay.
type EventStore interface {
	Claim(ctx context.Context, source, userID, key string) error
	Complete(ctx context.Context, source, userID, key, reply string) error
	Lookup(ctx context.Context, source, userID, key string) (reply string, found bool, err error)
}

//
// Handler wiring
//

// Deps are the collaborators of Handlers. Platform may be nil when the
// process only serves the ops API.
type Deps struct {
	Conversation Conversation
	Inventory    InventoryReader
	Reminders    ReminderRunner
	Events       EventStore
	Platform     messenger.Platform

	// ReplyTimeout bounds each platform reply call (default 10s).
	ReplyTimeout time.Duration
	// HorizonDays is the default window for GET /ingredients/expiring.
	HorizonDays int
}

// Handlers groups the webhook and ops API endpoints.
type Handlers struct {
	conv      Conversation
	inv       InventoryReader
	reminders ReminderRunner
	events    EventStore
	platform  messenger.Platform

	replyTimeout time.Duration
	horizonDays  int
}

// New constructs Handlers from d, filling defaults.
func New(d Deps) *Handlers {
	h := &Handlers{
		conv:         d.Conversation,
		inv:          d.Inventory,
		reminders:    d.Reminders,
		events:       d.Events,
		platform:     d.Platform,
		replyTimeout: d.ReplyTimeout,
		horizonDays:  d.HorizonDays,
	}
	if h.replyTimeout <= 0 {
		h.replyTimeout = 10 * time.Second
	}
	if h.horizonDays < 0 {
		h.horizonDays = 0
	}
	return h
}
