package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"referral-ledger-backend/internal/common/logger"
)

// TelegramInitDataMiddleware validates the init_data header against the bot
// token and puts the authenticated Telegram user into the context. The
// start_param of the init data, when present, carries the referral code the
// user followed and is stored alongside.
func TelegramInitDataMiddleware(botToken string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		initDataQuery := c.GetHeader("init_data")
		if initDataQuery == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram Init Data required"})
			return
		}

		if botToken == "" {
			logger.Error().Msg("BOT_TOKEN is empty, cannot validate init data")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
			return
		}

		if err := initdata.Validate(initDataQuery, botToken, ttl); err != nil {
			logger.Debug().Err(err).Msg("Init data validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid init data"})
			return
		}

		parsedData, err := initdata.Parse(initDataQuery)
		if err != nil {
			logger.Debug().Err(err).Msg("Init data parse failed")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to parse init data"})
			return
		}

		c.Set("user", parsedData.User)
		if parsedData.StartParam != "" {
			c.Set("start_param", parsedData.StartParam)
		}
		c.Next()
	}
}
