package services

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tbourn/pantry-bot/internal/domain"
)

// DatePolicy validates expiration dates and answers "what day is today" in
// the deployment's time zone.
type DatePolicy struct {
	Clock    clockwork.Clock
	Location *time.Location
	// RejectPast applies to single-item adds and modifications.
	RejectPast bool
	// RejectPastBulk applies to each entry of a multi-item add.
	RejectPastBulk bool
}

func (p DatePolicy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p DatePolicy) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}

// Today returns local midnight of the current day.
func (p DatePolicy) Today() time.Time {
	n := p.now().In(p.loc())
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, p.loc())
}

// Cutoff returns the inclusive expiry cutoff for a horizon of withinDays.
func (p DatePolicy) Cutoff(withinDays int) string {
	return p.Today().AddDate(0, 0, withinDays).Format(domain.DateLayout)
}

// ParseFormat checks that raw is a real calendar date in the canonical
// YYYY-MM-DD layout and returns it in canonical form.
func (p DatePolicy) ParseFormat(raw string) (string, time.Time, error) {
	s := strings.TrimSpace(raw)
	t, err := time.ParseInLocation(domain.DateLayout, s, p.loc())
	if err != nil || t.Format(domain.DateLayout) != s {
		return "", time.Time{}, invalid("expiration_date", raw, ReasonDate)
	}
	return s, t, nil
}

// Validate is ParseFormat plus the past-date rule. Today is never past.
func (p DatePolicy) Validate(raw string) (string, error) {
	s, t, err := p.ParseFormat(raw)
	if err != nil {
		return "", err
	}
	if p.RejectPast && t.Before(p.Today()) {
		return "", invalid("expiration_date", raw, ReasonPastDate)
	}
	return s, nil
}

// ValidateBulk is Validate with the bulk past-date rule.
func (p DatePolicy) ValidateBulk(raw string) (string, error) {
	p.RejectPast = p.RejectPastBulk
	return p.Validate(raw)
}
