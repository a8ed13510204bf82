package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/service"
)

type TimerHandler struct {
	sessions *service.SessionService
}

func NewTimerHandler(sessions *service.SessionService) *TimerHandler {
	return &TimerHandler{sessions: sessions}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		writeUnauthorized(c)
		return
	}

	state, apiErr := h.sessions.State(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Start(c *gin.Context) {
	userID := middleware.UserID(c)
	state, apiErr := h.sessions.Start(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	userID := middleware.UserID(c)
	state, apiErr := h.sessions.Pause(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Reset(c *gin.Context) {
	userID := middleware.UserID(c)
	state, apiErr := h.sessions.Reset(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Skip(c *gin.Context) {
	userID := middleware.UserID(c)
	state, apiErr := h.sessions.Skip(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) MicroBreakCheck(c *gin.Context) {
	userID := middleware.UserID(c)
	fired, state, apiErr := h.sessions.MicroBreakCheck(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fired": fired, "state": state})
}

func (h *TimerHandler) GetSettings(c *gin.Context) {
	userID := middleware.UserID(c)
	settings, apiErr := h.sessions.GetSettings(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *TimerHandler) UpdateSettings(c *gin.Context) {
	var patch model.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeInvalidJSON(c)
		return
	}

	userID := middleware.UserID(c)
	settings, apiErr := h.sessions.UpdateSettings(c.Request.Context(), userID, patch)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func writeUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "unauthorized", "message": "unauthorized"},
	})
}
