// Package messenger adapts chat platforms (LINE, Telegram) to the bot: it
// verifies and parses inbound webhooks into Inbound text events and delivers
// replies and reminder pushes.
package messenger

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"
)

// Platform names.
const (
	PlatformLINE     = "line"
	PlatformTelegram = "telegram"
)

// ErrInvalidSignature is returned when a webhook fails authentication.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Inbound is one text message from a user.
type Inbound struct {
	Platform string
	UserID   string
	Text     string

	// EventID identifies the delivery for redelivery suppression.
	EventID    string
	Redelivery bool

	// Platform-specific reply handles.
	ReplyToken string
	ChatID     int64
}

// Platform is a chat transport.
type Platform interface {
	Name() string
	// ParseRequest authenticates a webhook request and extracts its text
	// messages. Non-text events are skipped.
	ParseRequest(r *http.Request) ([]Inbound, error)
	// Reply answers an inbound message.
	Reply(ctx context.Context, in Inbound, text string) error
	// Push sends an unsolicited message to userID.
	Push(ctx context.Context, userID, text string) error
}

// call runs fn but gives up when ctx ends first. The SDK clients are not
// context-aware; their HTTP clients carry their own timeout.
func call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clip shortens text to at most max runes.
func clip(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	r := []rune(text)
	return string(r[:max])
}
