package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/autoscheduler-api/pkg/calendar"
	"github.com/arnavshah/autoscheduler-api/pkg/scheduler"
)

// ValidateInput checks a schedule request without placing anything.
func (h *Handler) ValidateInput(c *gin.Context) {
	var input ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	w, err := h.resolveWindow(input.TimeZone, input.WorkingHours, input.StartDate, input.EndDate)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	_, items, err := h.prepare(input.Tasks)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	calendar.MarkSelf(input.Events, input.SelfEmail)
	busy := calendar.BusyIntervals(input.Events)
	if err := scheduler.ValidateRequest(w.request(busy, items)); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"task_count":  len(items),
			"event_count": len(input.Events),
			"busy_count":  len(busy),
			"days":        w.end.DaysSince(w.start) + 1,
			"start_date":  w.start.String(),
			"end_date":    w.end.String(),
			"time_zone":   w.zone,
		},
	})
}
