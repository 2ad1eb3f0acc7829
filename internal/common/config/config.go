package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Postgres struct {
		Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
		Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
		Database        string        `env:"POSTGRES_DB" envDefault:"referral_ledger"`
		SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"5m"`
		AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`

		// TTL for cached dashboard snapshots
		SnapshotTTL time.Duration `env:"SNAPSHOT_CACHE_TTL" envDefault:"15s"`
	}

	Telegram struct {
		BotToken    string  `env:"BOT_TOKEN,required"`
		BotUsername string  `env:"BOT_USERNAME" envDefault:"YourBot"`
		AdminIDs    []int64 `env:"ADMIN_IDS" envSeparator:","`
	}

	Rewards RewardsConfig
}

// RewardsConfig enumerates the crediting policy knobs. Values are opaque to
// the reward engine: it never hardcodes amounts, only reads them from here.
type RewardsConfig struct {
	// Flat fee recorded per signup event, smallest currency unit.
	PlatformFeePaise int64 `env:"PLATFORM_FEE_PAISE" envDefault:"50"`

	// Stars credited to a user's own wallet on a verified task.
	ReferralStars int64 `env:"REFERRAL_STARS" envDefault:"5"`

	// Max sponsor-chain levels rewarded on signup.
	DepthLimit int `env:"DEPTH_LIMIT" envDefault:"10"`

	// Flat points per chain level under the "points" signup policy.
	LevelBonus int64 `env:"LEVEL_BONUS" envDefault:"1"`

	// Price of the pro tier, used to size the pro-upgrade commission.
	ProPricePaise int64 `env:"PRO_PRICE" envDefault:"49900"`

	// Signup reward type: "points" mirrors each level into the wallet,
	// "paise" splits the platform fee across the chain in the ledger only.
	SignupRewardType string `env:"SIGNUP_REWARD_TYPE" envDefault:"points"`

	// Percent of a purchase amount paid to the direct sponsor.
	PurchaseCommissionPercent int64 `env:"PURCHASE_COMMISSION_PERCENT" envDefault:"10"`
}

func Load() (*Config, error) {
	// Ignore a missing .env file; in production the variables are set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Rewards.DepthLimit <= 0 {
		return nil, fmt.Errorf("DEPTH_LIMIT must be positive, got %d", cfg.Rewards.DepthLimit)
	}

	return cfg, nil
}
