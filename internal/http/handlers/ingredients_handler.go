// Inventory HTTP handlers (read-only).
//
//   - GET /ingredients            (full inventory, ETag support)
//   - GET /ingredients/expiring   (items expiring within N days)
//
// Mutations only happen through conversational turns, so there is exactly
// one code path that edits and renumbers ingredients.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pantry-bot/internal/domain"
	"github.com/tbourn/pantry-bot/internal/utils"
)

// maxWithinDays caps the expiring window.
const maxWithinDays = 365

// ListIngredientsResponse is the inventory in id order.
type ListIngredientsResponse struct {
	Ingredients []domain.Ingredient `json:"ingredients"`
	Count       int                 `json:"count" example:"3"`
}

// ExpiringIngredientsResponse lists items expiring on or before today+WithinDays,
// already expired ones included.
type ExpiringIngredientsResponse struct {
	WithinDays  int                 `json:"within_days" example:"3"`
	Ingredients []domain.Ingredient `json:"ingredients"`
}

// ListIngredients godoc
// @ID          listIngredients
// @Summary     List the inventory
// @Description Returns every tracked ingredient ordered by id. Supports conditional
// @Description requests: send the returned ETag in If-None-Match to get 304 when unchanged.
// @Tags        Ingredients
// @Produce     json
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Success     200  {object}  handlers.ListIngredientsResponse
// @Success     304  "Not modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /ingredients [get]
func (h *Handlers) ListIngredients(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, maxTS, err := h.inv.Stats(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"ingredients:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.inv.List(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load inventory")
		return
	}
	ok(c, http.StatusOK, ListIngredientsResponse{Ingredients: items, Count: len(items)})
}

// ListExpiring godoc
// @ID          listExpiringIngredients
// @Summary     List ingredients about to expire
// @Description Same selection the reminder scheduler uses. within_days defaults to the
// @Description configured reminder horizon and is clamped to [0, 365].
// @Tags        Ingredients
// @Produce     json
// @Param       within_days  query  int  false  "Window in days"  minimum(0) maximum(365)
// @Success     200  {object}  handlers.ExpiringIngredientsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /ingredients/expiring [get]
func (h *Handlers) ListExpiring(c *gin.Context) {
	days := utils.Clamp(utils.AtoiDefault(c.Query("within_days"), h.horizonDays), 0, maxWithinDays)

	items, err := h.inv.ListExpiring(c.Request.Context(), days)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load inventory")
		return
	}
	ok(c, http.StatusOK, ExpiringIngredientsResponse{WithinDays: days, Ingredients: items})
}
