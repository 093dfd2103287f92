// Package services – Inventory
//
// This file implements Inventory, the single owner of ingredient and user
// records. Every call is a synchronous write-through to the database; there
// is no cache. Mutations are serialized by an in-process mutex and run inside
// a DB transaction, which keeps the application-assigned ids contiguous even
// when several users add or delete at the same time.
//
// Storage failures are wrapped in ErrStorage; a missing id is ErrNotFound.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/pantry-bot/internal/domain"
	"github.com/tbourn/pantry-bot/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Inventory is the Inventory Store used by the conversation and reminder
// services.
type Inventory struct {
	DB    *gorm.DB
	Dates DatePolicy

	// mu guards every mutation: max(id)+1 assignment and delete+reindex
	// must not interleave.
	mu sync.Mutex
}

// NewInventory wires an Inventory over db.
func NewInventory(db *gorm.DB, dates DatePolicy) *Inventory {
	return &Inventory{DB: db, Dates: dates}
}

func (s *Inventory) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("services/Inventory").Start(ctx, name, trace.WithAttributes(attrs...))
}

// List returns every ingredient ordered by id.
func (s *Inventory) List(ctx context.Context) ([]domain.Ingredient, error) {
	ctx, span := s.span(ctx, "List")
	defer span.End()

	items, err := repo.ListIngredients(ctx, s.DB)
	if err != nil {
		return nil, storageErr("list ingredients", err)
	}
	return items, nil
}

// Get returns the ingredient with the given id.
func (s *Inventory) Get(ctx context.Context, id int) (*domain.Ingredient, error) {
	ctx, span := s.span(ctx, "Get", attribute.Int("ingredient.id", id))
	defer span.End()

	in, err := repo.GetIngredient(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get ingredient", err)
	}
	return in, nil
}

// Add stores a new ingredient and returns it with its assigned id. The date
// must be a canonical calendar date; the past-date rule is the caller's
// policy decision.
func (s *Inventory) Add(ctx context.Context, name, date string) (*domain.Ingredient, error) {
	ctx, span := s.span(ctx, "Add")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", name, ReasonEmpty)
	}
	date, _, err := s.Dates.ParseFormat(date)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out *domain.Ingredient
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		in, err := repo.CreateIngredient(ctx, tx, name, date, time.Now())
		out = in
		return err
	})
	if err != nil {
		return nil, storageErr("add ingredient", err)
	}
	span.SetAttributes(attribute.Int("ingredient.id", out.ID))
	return out, nil
}

// Delete removes the given ids in one batch and renumbers the survivors to
// 1..N in their previous order. It reports how many rows were removed;
// unknown ids are ignored.
func (s *Inventory) Delete(ctx context.Context, ids []int) (int64, error) {
	ctx, span := s.span(ctx, "Delete", attribute.IntSlice("ingredient.ids", ids))
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repo.DeleteIngredients(ctx, tx, ids)
		if err != nil {
			return err
		}
		deleted = n
		return repo.ReindexIngredients(ctx, tx)
	})
	if err != nil {
		return 0, storageErr("delete ingredients", err)
	}
	return deleted, nil
}

// Update changes the name and/or date of an ingredient. It returns false
// (with a nil error) when the id does not exist.
func (s *Inventory) Update(ctx context.Context, id int, name, date *string) (bool, error) {
	ctx, span := s.span(ctx, "Update", attribute.Int("ingredient.id", id))
	defer span.End()

	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return false, invalid("name", *name, ReasonEmpty)
		}
		name = &n
	}
	if date != nil {
		d, _, err := s.Dates.ParseFormat(*date)
		if err != nil {
			return false, err
		}
		date = &d
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.UpdateIngredient(ctx, tx, id, name, date)
	})
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("update ingredient", err)
	}
	return true, nil
}

// ListExpiring returns every ingredient whose date is on or before today +
// withinDays, already expired ones included.
func (s *Inventory) ListExpiring(ctx context.Context, withinDays int) ([]domain.Ingredient, error) {
	cutoff := s.Dates.Cutoff(withinDays)
	ctx, span := s.span(ctx, "ListExpiring",
		attribute.Int("within_days", withinDays),
		attribute.String("cutoff", cutoff),
	)
	defer span.End()

	items, err := repo.ListIngredientsExpiringBy(ctx, s.DB, cutoff)
	if err != nil {
		return nil, storageErr("list expiring", err)
	}
	return items, nil
}

// RegisterUser records userID as a reminder recipient; repeated calls are
// no-ops.
func (s *Inventory) RegisterUser(ctx context.Context, userID string) error {
	ctx, span := s.span(ctx, "RegisterUser", attribute.String("user.id", userID))
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return invalid("user_id", userID, ReasonEmpty)
	}
	if err := repo.RegisterUser(ctx, s.DB, userID, time.Now()); err != nil {
		return storageErr("register user", err)
	}
	return nil
}

// ListUserIDs returns the sorted set of registered users.
func (s *Inventory) ListUserIDs(ctx context.Context) ([]string, error) {
	ctx, span := s.span(ctx, "ListUserIDs")
	defer span.End()

	ids, err := repo.ListUserIDs(ctx, s.DB)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	return ids, nil
}

// Stats returns the ingredient count and the latest modification time, used
// for ETags on the ops API.
func (s *Inventory) Stats(ctx context.Context) (int64, *time.Time, error) {
	count, maxAt, err := repo.IngredientsStats(ctx, s.DB)
	if err != nil {
		return 0, nil, storageErr("ingredient stats", err)
	}
	return count, maxAt, nil
}
