// Package app assembles the bot from configuration: storage, chat platform,
// services, HTTP routes and the reminder scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/pantry-bot/internal/config"
	httpapi "github.com/tbourn/pantry-bot/internal/http"
	"github.com/tbourn/pantry-bot/internal/http/handlers"
	"github.com/tbourn/pantry-bot/internal/llm"
	"github.com/tbourn/pantry-bot/internal/messenger"
	"github.com/tbourn/pantry-bot/internal/repo"
	"github.com/tbourn/pantry-bot/internal/services"
)

// ShutdownTimeout bounds the HTTP drain on shutdown.
const ShutdownTimeout = 15 * time.Second

// ErrNoPlatform is returned by reminder pushes when CHAT_PLATFORM=none.
var ErrNoPlatform = errors.New("no chat platform configured")

// App is a fully wired bot process.
type App struct {
	Config       config.Config
	DB           *gorm.DB
	Engine       *gin.Engine
	Platform     messenger.Platform // nil with CHAT_PLATFORM=none
	Conversation *services.ConversationService
	Reminders    *services.ReminderService
	Events       *services.EventLog

	closers []func() error
}

// Options override collaborators, mostly for tests.
type Options struct {
	Clock    clockwork.Clock
	Platform messenger.Platform
	// Generator replaces the Gemini client built from config.
	Generator services.Generator
}

// New opens storage and wires every component described by cfg.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", cfg.DBPath, err)
	}
	a := &App{Config: cfg, DB: db}
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("gorm tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a.Platform = opts.Platform
	if a.Platform == nil {
		if a.Platform, err = NewPlatform(cfg); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	gen := opts.Generator
	if gen == nil && cfg.AI.GeminiAPIKey != "" {
		g, err := llm.NewGemini(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		gen = g
	}

	loc := cfg.Reminder.Location()
	printer := services.NewPrinter(cfg.Locale)
	dates := services.DatePolicy{Clock: clk, Location: loc, RejectPast: cfg.RejectPastDates, RejectPastBulk: cfg.RejectPastDatesBulk}
	inv := services.NewInventory(db, dates)

	a.Conversation = &services.ConversationService{
		Inventory:    inv,
		Sessions:     services.NewMemorySessionStore(),
		Dates:        dates,
		Printer:      printer,
		IdleFallback: services.IdleFallback(cfg.IdleFallback),
		AITimeout:    cfg.AI.Timeout,
	}
	if gen != nil {
		a.Conversation.Generator = gen
	}

	sched, err := schedule(cfg.Reminder)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Reminders = &services.ReminderService{
		Inventory:   inv,
		Pusher:      pusher(a.Platform),
		Printer:     printer,
		Clock:       clk,
		Schedule:    sched,
		HorizonDays: cfg.Reminder.HorizonDays,
		PushTimeout: cfg.PushTimeout,
	}

	a.Events = &services.EventLog{DB: db, TTL: cfg.EventTTL, Clock: clk}

	gin.SetMode(cfg.GinMode)
	a.Engine = gin.New()
	httpapi.RegisterRoutes(a.Engine, cfg, handlers.Deps{
		Conversation: a.Conversation,
		Inventory:    inv,
		Reminders:    a.Reminders,
		Events:       a.Events,
		Platform:     a.Platform,
		ReplyTimeout: cfg.PushTimeout,
		HorizonDays:  cfg.Reminder.HorizonDays,
	})
	return a, nil
}

// NewPlatform builds the chat adapter selected by CHAT_PLATFORM. It returns
// nil for "none".
func NewPlatform(cfg config.Config) (messenger.Platform, error) {
	client := &http.Client{Timeout: cfg.PushTimeout}
	switch cfg.Platform {
	case config.PlatformLINE:
		return messenger.NewLINE(cfg.LINE.ChannelSecret, cfg.LINE.ChannelToken, client)
	case config.PlatformTelegram:
		return messenger.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.WebhookSecret, client)
	case config.PlatformNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown chat platform %q", cfg.Platform)
	}
}

func schedule(rc config.ReminderConfig) (services.Schedule, error) {
	s := services.Schedule{
		Mode:     services.ScheduleMode(rc.Mode),
		Interval: rc.Interval,
		Location: rc.Location(),
	}
	if s.Mode == services.ScheduleDaily {
		h, m, err := services.ParseTimeOfDay(rc.DailyAt)
		if err != nil {
			return s, err
		}
		s.Hour, s.Minute = h, m
	}
	return s, nil
}

type pushFunc func(ctx context.Context, userID, text string) error

func (f pushFunc) Push(ctx context.Context, userID, text string) error { return f(ctx, userID, text) }

func pusher(p messenger.Platform) services.Pusher {
	if p == nil {
		return pushFunc(func(context.Context, string, string) error { return ErrNoPlatform })
	}
	return p
}

// Server returns the HTTP server for the configured port and timeouts.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", a.Config.Port),
		Handler:           a.Engine,
		ReadTimeout:       a.Config.ReadTimeout,
		ReadHeaderTimeout: a.Config.ReadHeaderTimeout,
		WriteTimeout:      a.Config.WriteTimeout,
		IdleTimeout:       a.Config.IdleTimeout,
		MaxHeaderBytes:    a.Config.MaxHeaderBytes,
	}
}

// Run serves HTTP and runs the reminder scheduler until ctx is cancelled,
// then drains both.
func (a *App) Run(ctx context.Context) error {
	if n, err := a.Events.Purge(ctx); err != nil {
		log.Warn().Err(err).Msg("purge expired events")
	} else if n > 0 {
		log.Info().Int64("purged", n).Msg("expired events purged")
	}

	srv := a.Server()
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("platform", a.Config.Platform).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	schedCtx, stopSched := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if a.Config.Reminder.Enabled && a.Platform != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Reminders.Run(schedCtx)
		}()
	} else {
		log.Info().Msg("reminder scheduler disabled")
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case runErr = <-errc:
		log.Error().Err(runErr).Msg("http server failed")
	}

	stopSched()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()
	return runErr
}

// Close releases the database and the AI client.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
