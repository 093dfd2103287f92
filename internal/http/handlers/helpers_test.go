package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pantry-bot/internal/domain"
	"github.com/tbourn/pantry-bot/internal/http/middleware"
	"github.com/tbourn/pantry-bot/internal/messenger"
	"github.com/tbourn/pantry-bot/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ----- fakes -----

type turnCall struct{ userID, text string }

type fakeConversation struct {
	mu    sync.Mutex
	calls []turnCall
}

func (f *fakeConversation) Handle(_ context.Context, userID, text string) services.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, turnCall{userID, text})
	return services.Reply{
		Text:    "echo: " + text,
		Intent:  services.IntentQuery,
		State:   services.Idle{},
		Outcome: services.OutcomeOK,
	}
}

func (f *fakeConversation) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeInventory struct {
	items     []domain.Ingredient
	updatedAt *time.Time
	err       error
	statsErr  error
	lastDays  int
}

func (f *fakeInventory) List(context.Context) ([]domain.Ingredient, error) {
	return f.items, f.err
}

func (f *fakeInventory) ListExpiring(_ context.Context, withinDays int) ([]domain.Ingredient, error) {
	f.lastDays = withinDays
	return f.items, f.err
}

func (f *fakeInventory) Stats(context.Context) (int64, *time.Time, error) {
	return int64(len(f.items)), f.updatedAt, f.statsErr
}

type fakeReminders struct {
	report services.RunReport
	err    error
	runs   int
}

func (f *fakeReminders) RunOnce(context.Context) (services.RunReport, error) {
	f.runs++
	return f.report, f.err
}

type eventKey struct{ source, user, key string }

// fakeEvents mimics services.EventLog in memory.
type fakeEvents struct {
	mu      sync.Mutex
	records map[eventKey]string
	err     error
}

func newFakeEvents() *fakeEvents { return &fakeEvents{records: map[eventKey]string{}} }

func (f *fakeEvents) Claim(_ context.Context, source, userID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	k := eventKey{source, userID, key}
	if _, ok := f.records[k]; ok {
		return services.ErrAlreadyProcessed
	}
	f.records[k] = ""
	return nil
}

func (f *fakeEvents) Complete(_ context.Context, source, userID, key, reply string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[eventKey{source, userID, key}] = reply
	return nil
}

func (f *fakeEvents) Lookup(_ context.Context, source, userID, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	r, ok := f.records[eventKey{source, userID, key}]
	return r, ok, nil
}

type replyCall struct {
	in   messenger.Inbound
	text string
}

type fakePlatform struct {
	events   []messenger.Inbound
	parseErr error
	replyErr error
	replies  []replyCall
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) ParseRequest(*http.Request) ([]messenger.Inbound, error) {
	return f.events, f.parseErr
}

func (f *fakePlatform) Reply(_ context.Context, in messenger.Inbound, text string) error {
	f.replies = append(f.replies, replyCall{in, text})
	return f.replyErr
}

func (f *fakePlatform) Push(context.Context, string, string) error { return errors.New("unused") }

// newRouter mounts every handler the way the real router does, minus the
// observability middleware.
func newRouter(d Deps) *gin.Engine {
	h := New(d)
	r := gin.New()
	r.POST("/callback", h.Webhook)
	api := r.Group("/api/v1", middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	api.POST("/turns", h.PostTurn)
	api.GET("/ingredients", h.ListIngredients)
	api.GET("/ingredients/expiring", h.ListExpiring)
	api.POST("/reminders/run", h.RunReminders)
	return r
}
