package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"referral-ledger-backend/internal/common/logger"
	rewardmodels "referral-ledger-backend/internal/features/reward/models"
	rewardservice "referral-ledger-backend/internal/features/reward/service"
	"referral-ledger-backend/internal/features/user/mapper"
	"referral-ledger-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
	rewards rewardservice.RewardEngine
}

func NewUserHandler(service service.UserService, rewards rewardservice.RewardEngine) *UserHandler {
	return &UserHandler{
		service: service,
		rewards: rewards,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("/me", h.getMe)
		users.GET("/:id", h.GetUser)
	}
}

// @Summary Get current user
// @Description Get or register the current user from Telegram init data. The start_param, when present, carries the referral code the user followed. First registration triggers signup rewards for the sponsor chain.
// @Tags users
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.RegistrationResponse "User data with created flag"
// @Failure 400 {object} middleware.ErrorResponse "Invalid init data"
// @Failure 401 {object} middleware.ErrorResponse "Missing init data"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /users/me [get]
func (h *UserHandler) getMe(c *gin.Context) {
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

	referralCode := c.GetString("start_param")

	result, err := h.service.Register(c.Request.Context(), telegramUser.ID, telegramUser.Username, referralCode)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Signup rewards run only on first registration. A crediting failure is
	// logged but never surfaces to the registering user.
	if result.Created {
		event := rewardmodels.RewardEvent{
			Kind:       rewardmodels.EventSignup,
			TelegramID: telegramUser.ID,
		}
		if err := h.rewards.Apply(c.Request.Context(), event); err != nil {
			logger.Warn().
				Err(err).
				Int64("user_id", telegramUser.ID).
				Msg("Failed to apply signup rewards")
		}
	}

	c.JSON(http.StatusOK, mapper.ToRegistrationResponse(result))
}

// @Summary Get user by Telegram ID
// @Description Get public user information by Telegram ID
// @Tags users
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path int true "Telegram ID"
// @Success 200 {object} models.UserResponse "User data"
// @Failure 400 {object} middleware.ErrorResponse "Invalid ID"
// @Failure 401 {object} middleware.ErrorResponse "Unauthorized"
// @Failure 404 {object} middleware.ErrorResponse "User not found"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		if err == service.ErrUserNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, mapper.ToUserResponse(user))
}
