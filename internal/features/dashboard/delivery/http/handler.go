package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"referral-ledger-backend/internal/features/dashboard/service"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(service service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		service: service,
	}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	dashboard := router.Group("/dashboard")
	{
		dashboard.GET("/me", h.getMe)
	}
}

// @Summary Get dashboard snapshot
// @Description Get the current user's dashboard: position, downline count, total earnings, star balance and referral link
// @Tags dashboard
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.Snapshot "Dashboard snapshot"
// @Failure 401 {object} middleware.ErrorResponse "Missing init data"
// @Failure 404 {object} middleware.ErrorResponse "User not registered"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /dashboard/me [get]
func (h *DashboardHandler) getMe(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram Init Data required"})
		return
	}

	telegramUser, ok := user.(initdata.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user data format"})
		return
	}

	snapshot, err := h.service.GetSnapshot(c.Request.Context(), telegramUser.ID)
	if err != nil {
		if err == service.ErrUserNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
