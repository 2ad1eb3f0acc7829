package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"referral-ledger-backend/internal/common/middleware"
	"referral-ledger-backend/internal/features/reward/models"
	"referral-ledger-backend/internal/features/reward/service"
)

type RewardHandler struct {
	engine   service.RewardEngine
	adminIDs []int64
}

func NewRewardHandler(engine service.RewardEngine, adminIDs []int64) *RewardHandler {
	return &RewardHandler{
		engine:   engine,
		adminIDs: adminIDs,
	}
}

func (h *RewardHandler) RegisterRoutes(router *gin.RouterGroup) {
	rewards := router.Group("/rewards")
	rewards.Use(middleware.RequireAdmin(h.adminIDs))
	{
		rewards.POST("", h.applyEvent)
	}
}

// @Summary Apply a reward event
// @Description Dispatch a triggering event (signup, task-verified, purchase, pro-upgrade) through the reward engine. Admin only.
// @Tags rewards
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param event body models.RewardEvent true "Reward event"
// @Success 200 {object} map[string]interface{} "Event applied"
// @Failure 400 {object} middleware.ErrorResponse "Invalid event"
// @Failure 401 {object} middleware.ErrorResponse "Missing init data"
// @Failure 403 {object} middleware.ErrorResponse "Not an admin"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /rewards [post]
func (h *RewardHandler) applyEvent(c *gin.Context) {
	var event models.RewardEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if event.TelegramID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	if err := h.engine.Apply(c.Request.Context(), event); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
