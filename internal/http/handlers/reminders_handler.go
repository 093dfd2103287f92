package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunReminders godoc
// @ID          runReminders
// @Summary     Run one reminder cycle now
// @Description Pushes an expiry reminder for every item within the horizon to every
// @Description registered user, exactly like a scheduled cycle. Individual push
// @Description failures are counted in the report, not returned as errors.
// @Tags        Reminders
// @Produce     json
// @Success     200  {object}  services.RunReport
// @Failure     500  {object}  handlers.ErrorResponse  "Inventory could not be read"
// @Router      /reminders/run [post]
func (h *Handlers) RunReminders(c *gin.Context) {
	report, err := h.reminders.RunOnce(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReminderFailed, "reminder run failed")
		return
	}
	ok(c, http.StatusOK, report)
}
