// Webhook HTTP handler.
//
// The chat platform posts every user message here. Each text event is
// deduplicated by platform event id, run through the conversation, and
// answered with the platform's reply API. Reply failures are logged only:
// the platform gets 200 either way, otherwise it would redeliver an event
// whose turn already mutated the inventory.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pantry-bot/internal/http/middleware"
	"github.com/tbourn/pantry-bot/internal/messenger"
	"github.com/tbourn/pantry-bot/internal/services"
)

// WebhookResponse acknowledges a delivery.
type WebhookResponse struct {
	Status  string `json:"status" example:"ok"`
	Handled int    `json:"handled" example:"1"`
	Skipped int    `json:"skipped" example:"0"`
}

// Webhook receives LINE (POST /callback, signed with X-Line-Signature) or
// Telegram (POST /telegram/webhook, X-Telegram-Bot-Api-Secret-Token)
// deliveries. It answers 401 on a bad signature, 400 on a malformed payload
// and 200 with a WebhookResponse otherwise. Redelivered events are
// acknowledged without being handled again.
func (h *Handlers) Webhook(c *gin.Context) {
	if h.platform == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no chat platform configured")
		return
	}

	events, err := h.platform.ParseRequest(c.Request)
	switch {
	case errors.Is(err, messenger.ErrInvalidSignature):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidSignature, "invalid webhook signature")
		return
	case err != nil:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed webhook payload")
		return
	}

	// A turn is never cancelled halfway, even if the platform hangs up.
	ctx := context.WithoutCancel(c.Request.Context())

	resp := WebhookResponse{Status: "ok"}
	for _, in := range events {
		if h.handleInbound(ctx, c, in) {
			resp.Handled++
		} else {
			resp.Skipped++
		}
	}
	ok(c, http.StatusOK, resp)
}

// handleInbound runs one event and reports whether it was handled.
func (h *Handlers) handleInbound(ctx context.Context, c *gin.Context, in messenger.Inbound) bool {
	lg := middleware.LoggerFrom(c).With().
		Str("platform", in.Platform).
		Str("event_id", in.EventID).
		Logger()

	if in.EventID != "" && h.events != nil {
		err := h.events.Claim(ctx, in.Platform, in.UserID, in.EventID)
		switch {
		case errors.Is(err, services.ErrAlreadyProcessed):
			lg.Info().Bool("redelivery", in.Redelivery).Msg("duplicate event dropped")
			return false
		case err != nil:
			// Handle anyway; this event just is not deduplicated.
			lg.Warn().Err(err).Msg("event log unavailable")
		}
	}

	reply := h.conv.Handle(ctx, in.UserID, in.Text)

	rctx, cancel := context.WithTimeout(ctx, h.replyTimeout)
	defer cancel()
	if err := h.platform.Reply(rctx, in, reply.Text); err != nil {
		lg.Warn().Err(err).Str("state", stateName(reply.State)).Msg("reply failed")
	}
	return true
}
