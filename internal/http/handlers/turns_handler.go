// Direct turn HTTP handler.
//
// POST /turns runs one conversational turn for a user without going through
// a chat platform: for operators, scripted tests and integrations. With an
// Idempotency-Key the first reply is stored and any retry with the same
// (user, key) gets it back with `Idempotency-Replayed: true` instead of
// running the turn again.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pantry-bot/internal/http/middleware"
	"github.com/tbourn/pantry-bot/internal/services"
)

// SourceAPI tags processed-event records written by the turns endpoint.
const SourceAPI = "api"

// TurnRequest is the JSON payload for POST /turns.
type TurnRequest struct {
	// Text is what the user typed.
	Text string `json:"text" binding:"required,max=4000" example:"新增 牛奶, 2025-06-20"`
}

// TurnResponse is the bot's answer to one turn.
type TurnResponse struct {
	Reply    string `json:"reply" example:"1. 牛奶 (expires: 2025-06-20)"`
	Intent   string `json:"intent,omitempty" example:"add"`
	State    string `json:"state,omitempty" example:"idle"`
	Outcome  string `json:"outcome,omitempty" example:"ok"`
	Replayed bool   `json:"replayed,omitempty"`
}

// PostTurn godoc
// @ID          postTurn
// @Summary     Run one conversational turn
// @Description Feeds text to the bot as if the user had typed it in chat and returns the reply.
// @Description Supports idempotency via the Idempotency-Key header (same key → same reply, turn runs once).
// @Tags        Turns
// @Accept      json
// @Produce     json
// @Param       X-User-ID        header  string  true  "Chat user id the turn belongs to"  example(U4af4980629)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.TurnRequest  true  "User text"
// @Success     200  {object}  handlers.TurnResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Same key still in progress"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /turns [post]
func (h *Handlers) PostTurn(c *gin.Context) {
	ctx := c.Request.Context()

	uid := strings.TrimSpace(middleware.UserID(c))
	if uid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "X-User-ID header is required")
		return
	}
	middleware.SetUserID(c, uid)

	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
		return
	}

	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && h.events != nil {
		err := h.events.Claim(ctx, SourceAPI, uid, key)
		switch {
		case errors.Is(err, services.ErrAlreadyProcessed):
			h.replay(c, uid, key)
			return
		case err != nil:
			fail(c, http.StatusInternalServerError, ErrCodeTurnFailed, "could not record idempotency key")
			return
		}
	}

	reply := h.conv.Handle(ctx, uid, req.Text)

	if hasKey && h.events != nil {
		if err := h.events.Complete(ctx, SourceAPI, uid, key, reply.Text); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("store idempotent reply")
		}
	}

	ok(c, http.StatusOK, TurnResponse{
		Reply:   reply.Text,
		Intent:  string(reply.Intent),
		State:   stateName(reply.State),
		Outcome: reply.Outcome,
	})
}

// replay serves the stored reply for (uid, key). A claimed key without a
// reply belongs to a request that is still running.
func (h *Handlers) replay(c *gin.Context, uid, key string) {
	reply, found, err := h.events.Lookup(c.Request.Context(), SourceAPI, uid, key)
	switch {
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeTurnFailed, "could not load stored reply")
	case !found || reply == "":
		fail(c, http.StatusConflict, ErrCodeConflict, "a request with this Idempotency-Key is still in progress")
	default:
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, TurnResponse{Reply: reply, Replayed: true})
	}
}

func stateName(s services.State) string {
	if s == nil {
		return ""
	}
	return s.Name()
}
