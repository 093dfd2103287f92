package services

import (
	"sync"

	"github.com/moby/locker"
)

// State names, also used as metric and log labels.
const (
	StateIdle                      = "idle"
	StateAwaitingAddInput          = "awaiting_add_input"
	StateAwaitingAddDate           = "awaiting_add_date"
	StateAwaitingDeleteIDs         = "awaiting_delete_ids"
	StateAwaitingModifySelection   = "awaiting_modify_selection"
	StateAwaitingModifyField       = "awaiting_modify_field"
	StateAwaitingModifyValue       = "awaiting_modify_value"
	StateAwaitingRecipeIngredients = "awaiting_recipe_ingredients"
)

// State is one user's position in a flow. Each variant carries only the data
// collected so far for that step.
type State interface {
	Name() string
	state()
}

type (
	Idle                    struct{}
	AwaitingAddInput        struct{}
	AwaitingAddDate         struct{ Item string }
	AwaitingDeleteIDs       struct{}
	AwaitingModifySelection struct{}
	AwaitingModifyField     struct{ ID int }
	AwaitingModifyValue     struct {
		ID    int
		Field Field
	}
	AwaitingRecipeIngredients struct{}
)

func (Idle) Name() string                      { return StateIdle }
func (AwaitingAddInput) Name() string          { return StateAwaitingAddInput }
func (AwaitingAddDate) Name() string           { return StateAwaitingAddDate }
func (AwaitingDeleteIDs) Name() string         { return StateAwaitingDeleteIDs }
func (AwaitingModifySelection) Name() string   { return StateAwaitingModifySelection }
func (AwaitingModifyField) Name() string       { return StateAwaitingModifyField }
func (AwaitingModifyValue) Name() string       { return StateAwaitingModifyValue }
func (AwaitingRecipeIngredients) Name() string { return StateAwaitingRecipeIngredients }

func (Idle) state()                      {}
func (AwaitingAddInput) state()          {}
func (AwaitingAddDate) state()           {}
func (AwaitingDeleteIDs) state()         {}
func (AwaitingModifySelection) state()   {}
func (AwaitingModifyField) state()       {}
func (AwaitingModifyValue) state()       {}
func (AwaitingRecipeIngredients) state() {}

// Recovery is what a flow does with its state when a step rejects input.
type Recovery int

const (
	// ResetToIdle abandons the flow.
	ResetToIdle Recovery = iota
	// Retry keeps the current state so the same prompt can be answered again.
	Retry
)

// errorPolicy maps each state to its recovery on validation failure.
// NotFound, storage and collaborator errors always reset to Idle.
var errorPolicy = map[string]Recovery{
	StateIdle:                      ResetToIdle,
	StateAwaitingAddInput:          ResetToIdle,
	StateAwaitingAddDate:           Retry,
	StateAwaitingDeleteIDs:         ResetToIdle,
	StateAwaitingModifySelection:   Retry,
	StateAwaitingModifyField:       Retry,
	StateAwaitingModifyValue:       Retry,
	StateAwaitingRecipeIngredients: ResetToIdle,
}

// SessionStore keeps the per-user conversation state.
type SessionStore interface {
	// Get returns the user's state, Idle if none is recorded.
	Get(userID string) State
	Set(userID string, s State)
	Reset(userID string)
}

// MemorySessionStore is a process-local SessionStore. Sessions live until
// the process exits.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]State
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]State)}
}

func (m *MemorySessionStore) Get(userID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	return Idle{}
}

func (m *MemorySessionStore) Set(userID string, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[string]State)
	}
	if _, idle := s.(Idle); idle || s == nil {
		delete(m.sessions, userID)
		return
	}
	m.sessions[userID] = s
}

func (m *MemorySessionStore) Reset(userID string) { m.Set(userID, Idle{}) }

// Len reports how many users are mid-flow.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// userLocks serializes turns per user. locker drops a name once nobody
// holds or waits on it.
type userLocks struct {
	once sync.Once
	l    *locker.Locker
}

func (u *userLocks) Lock(userID string) (unlock func()) {
	u.once.Do(func() { u.l = locker.New() })
	u.l.Lock(userID)
	return func() { _ = u.l.Unlock(userID) }
}
