package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/service"
)

type StatsHandler struct {
	sessions *service.SessionService
}

func NewStatsHandler(sessions *service.SessionService) *StatsHandler {
	return &StatsHandler{sessions: sessions}
}

// GetPeriod serves one rollup: daily, weekly, monthly or allTime.
func (h *StatsHandler) GetPeriod(c *gin.Context) {
	userID := middleware.UserID(c)
	period := c.Param("period")

	stats, apiErr := h.sessions.PeriodStats(c.Request.Context(), userID, period)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period, "stats": stats})
}

func (h *StatsHandler) GetStreak(c *gin.Context) {
	userID := middleware.UserID(c)
	streak, apiErr := h.sessions.Streak(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": streak})
}

func (h *StatsHandler) GetHistory(c *gin.Context) {
	userID := middleware.UserID(c)

	limit := 0
	if rawLimit := c.Query("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	records, apiErr := h.sessions.History(c.Request.Context(), userID, limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
