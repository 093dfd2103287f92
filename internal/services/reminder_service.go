// Package services – ReminderService
//
// This file implements the expiry reminder scheduler. Each cycle reads the
// ingredients expiring within the configured horizon and broadcasts one push
// per (ingredient, registered user) pair. A failed push is logged and counted
// but never stops the remaining pushes; a failed store read aborts the cycle
// and the next scheduled cycle retries. The scheduler only reads the store.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/message"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Pusher delivers a proactive message to one user.
type Pusher interface {
	Push(ctx context.Context, userID, text string) error
}

// ScheduleMode selects how Run spaces its cycles.
type ScheduleMode string

const (
	ScheduleInterval ScheduleMode = "interval"
	ScheduleDaily    ScheduleMode = "daily"
)

// Schedule describes when reminder cycles run.
type Schedule struct {
	Mode     ScheduleMode
	Interval time.Duration // interval mode
	Hour     int           // daily mode, local time
	Minute   int
	Location *time.Location
}

// Next returns the first run time strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	if s.Mode != ScheduleDaily {
		iv := s.Interval
		if iv <= 0 {
			iv = time.Hour
		}
		return now.Add(iv)
	}
	daily, err := s.dailySpec()
	if err != nil {
		return now.Add(24 * time.Hour)
	}
	return daily.Next(now)
}

// dailySpec builds the daily schedule as a "M H * * *" spec in s.Location.
func (s Schedule) dailySpec() (cron.Schedule, error) {
	sched, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", s.Minute, s.Hour))
	if err != nil {
		return nil, err
	}
	spec := sched.(*cron.SpecSchedule)
	spec.Location = time.UTC
	if s.Location != nil {
		spec.Location = s.Location
	}
	return spec, nil
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(v string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, 0, fmt.Errorf("time of day %q: want HH:MM", v)
	}
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day %q: want HH:MM", v)
	}
	return hour, minute, nil
}

// RunReport summarizes one reminder cycle.
type RunReport struct {
	Items     int `json:"items"`
	Users     int `json:"users"`
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// ReminderService is the Reminder Scheduler.
type ReminderService struct {
	Inventory   *Inventory
	Pusher      Pusher
	Printer     *message.Printer
	Clock       clockwork.Clock
	Schedule    Schedule
	HorizonDays int
	PushTimeout time.Duration

	// mu serializes cycles started by Run, the ops API and the CLI flag.
	mu sync.Mutex
}

// RunOnce performs one reminder cycle.
func (r *ReminderService) RunOnce(ctx context.Context) (RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "RunOnce",
		trace.WithAttributes(attribute.Int("horizon_days", r.HorizonDays)),
	)
	defer span.End()

	var rep RunReport

	items, err := r.Inventory.ListExpiring(ctx, r.HorizonDays)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list expiring")
		reminderRuns.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("reminder run aborted: list expiring")
		return rep, err
	}
	rep.Items = len(items)
	if len(items) == 0 {
		reminderRuns.WithLabelValues("noop").Inc()
		log.Info().Int("horizon_days", r.HorizonDays).Msg("reminder run: nothing expiring")
		return rep, nil
	}

	users, err := r.Inventory.ListUserIDs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list users")
		reminderRuns.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("reminder run aborted: list users")
		return rep, err
	}
	rep.Users = len(users)

	p := r.Printer
	if p == nil {
		p = NewPrinter("en")
	}
	for _, in := range items {
		text := p.Sprintf(msgReminder, in.Name, in.ExpirationDate)
		for _, uid := range users {
			rep.Attempted++
			if err := r.push(ctx, uid, text); err != nil {
				rep.Failed++
				reminderPushes.WithLabelValues("failed").Inc()
				log.Warn().Err(err).
					Str("user_id", uid).
					Int("ingredient_id", in.ID).
					Msg("reminder push failed")
				continue
			}
			rep.Sent++
			reminderPushes.WithLabelValues("sent").Inc()
		}
	}

	span.SetAttributes(
		attribute.Int("items", rep.Items),
		attribute.Int("users", rep.Users),
		attribute.Int("sent", rep.Sent),
		attribute.Int("failed", rep.Failed),
	)
	reminderRuns.WithLabelValues("ok").Inc()
	log.Info().
		Int("items", rep.Items).
		Int("users", rep.Users).
		Int("sent", rep.Sent).
		Int("failed", rep.Failed).
		Msg("reminder run complete")
	return rep, nil
}

// push sends one message under its own timeout. A panicking transport is
// treated like a failed push.
func (r *ReminderService) push(ctx context.Context, userID, text string) (err error) {
	if r.PushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.PushTimeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = collaboratorErr("push", fmt.Errorf("panic: %v", rec))
		}
	}()
	if err := r.Pusher.Push(ctx, userID, text); err != nil {
		return collaboratorErr("push", err)
	}
	return nil
}

// Run executes cycles on the configured schedule until ctx is cancelled.
func (r *ReminderService) Run(ctx context.Context) {
	clk := r.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	log.Info().
		Str("mode", string(r.Schedule.Mode)).
		Dur("interval", r.Schedule.Interval).
		Int("horizon_days", r.HorizonDays).
		Msg("reminder scheduler started")

	for {
		now := clk.Now()
		next := r.Schedule.Next(now)
		log.Debug().Time("next_run", next).Msg("reminder scheduler waiting")

		timer := clk.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("reminder scheduler stopped")
			return
		case <-timer.Chan():
		}

		// Errors are logged inside; the next cycle retries.
		_, _ = r.RunOnce(ctx)
	}
}
