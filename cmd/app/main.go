package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"referral-ledger-backend/internal/common/cache"
	"referral-ledger-backend/internal/common/config"
	"referral-ledger-backend/internal/common/logger"
	"referral-ledger-backend/internal/common/middleware"
	dashboardHTTP "referral-ledger-backend/internal/features/dashboard/delivery/http"
	dashboardRepo "referral-ledger-backend/internal/features/dashboard/repository/postgres"
	dashboardService "referral-ledger-backend/internal/features/dashboard/service"
	referralService "referral-ledger-backend/internal/features/referral/service"
	rewardHTTP "referral-ledger-backend/internal/features/reward/delivery/http"
	rewardRepo "referral-ledger-backend/internal/features/reward/repository/postgres"
	rewardService "referral-ledger-backend/internal/features/reward/service"
	userHTTP "referral-ledger-backend/internal/features/user/delivery/http"
	userRepo "referral-ledger-backend/internal/features/user/repository/postgres"
	userService "referral-ledger-backend/internal/features/user/service"
	"referral-ledger-backend/internal/platform/postgres"
	"referral-ledger-backend/internal/platform/redis"
)

const initDataTTL = 24 * time.Hour

// @title           Referral Ledger API
// @version         1.0
// @description     API server for a Telegram Mini App referral and reward program. All endpoints require init_data authentication.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data string for authentication

// @tag.name users
// @tag.description User registration and lookup

// @tag.name dashboard
// @tag.description Per-user dashboard snapshots

// @tag.name rewards
// @tag.description Reward event dispatch (admin only)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init("referral-ledger-backend", cfg.Debug)

	logger.Info().
		Bool("debug", cfg.Debug).
		Str("signup_reward_type", cfg.Rewards.SignupRewardType).
		Int("depth_limit", cfg.Rewards.DepthLimit).
		Msg("Starting referral ledger backend")

	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgresClient.Close()

	if cfg.Postgres.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := postgresClient.Migrate(ctx); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("Failed to migrate database")
		}
		cancel()
		logger.Info().Msg("Database schema up to date")
	}

	redisClient, err := redis.CreateRedisClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	cacheService := cache.NewCacheService(redisClient)

	db := postgresClient.GetDB()
	userRepository := userRepo.NewPostgresRepository(db)
	walletRepository := userRepo.NewWalletRepository(db)
	ledgerRepository := rewardRepo.NewPostgresRepository(db)
	dashboardRepository := dashboardRepo.NewPostgresRepository(db)

	resolver := referralService.NewReferralResolver(userRepository)
	userSvc := userService.NewUserService(userRepository, resolver)
	rewardEngine := rewardService.NewRewardEngine(cfg.Rewards, ledgerRepository, walletRepository, resolver, cacheService)
	dashboardSvc := dashboardService.NewDashboardService(dashboardRepository, cacheService, cfg.Redis.SnapshotTTL, cfg.Telegram.BotUsername)

	logger.Info().Msg("Services initialized")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TelegramInitDataMiddleware(cfg.Telegram.BotToken, initDataTTL))
	v1.Use(middleware.RequireAuth())
	{
		userHTTP.NewUserHandler(userSvc, rewardEngine).RegisterRoutes(v1)
		dashboardHTTP.NewDashboardHandler(dashboardSvc).RegisterRoutes(v1)
		rewardHTTP.NewRewardHandler(rewardEngine, cfg.Telegram.AdminIDs).RegisterRoutes(v1)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	registerProbes(router, postgresClient, redisClient)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

func registerProbes(router *gin.Engine, postgresClient *postgres.Client, redisClient redis.RedisClient) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "referral-ledger-backend",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := postgresClient.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "postgres unavailable",
				"details": err.Error(),
			})
			return
		}

		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "referral-ledger-backend",
		})
	})
}
