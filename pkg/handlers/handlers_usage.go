package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/autoscheduler-api/pkg/database"
)

// RecordUsage adds task counts to today's usage row of the calling key. The
// request itself is counted by APIKeyMiddleware.
func (h *Handler) RecordUsage(c *gin.Context, requested, scheduled int) {
	apiKey, err := apiKeyFrom(c)
	if err != nil {
		return
	}
	if err := database.RecordUsage(h.DB, apiKey.ID, h.now(), 0, requested, scheduled); err != nil {
		h.Log.Error("record usage", zap.Uint("key_id", apiKey.ID), zap.Error(err))
	}
}

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKey, err := apiKeyFrom(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	usage, err := database.UsageHistory(h.DB, apiKey.ID, 30)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch usage details"})
		return
	}

	var totalRequests, totalRequested, totalScheduled int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalRequested += int64(u.TasksRequested)
		totalScheduled += int64(u.TasksScheduled)
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": usage,
		"totals": gin.H{
			"requests":        totalRequests,
			"tasks_requested": totalRequested,
			"tasks_scheduled": totalScheduled,
		},
	})
}
