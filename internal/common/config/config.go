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
		Port int `env:"PORT" envDefault:"8080"`
	}

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`
		AdminID  string `env:"BOT_ADMIN_ID,required"`

		// Channel that receives the snapshot document backups. Only used
		// when Redis is not configured.
		BackupChannelID int64 `env:"DB_CHANNEL_ID" envDefault:"0"`

		Debug bool `env:"TELEGRAM_DEBUG" envDefault:"false"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:""`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Monitor struct {
		CheckInterval     time.Duration `env:"CHECK_INTERVAL" envDefault:"60s"`
		MaxWatchesPerUser int           `env:"MAX_WATCHES_PER_USER" envDefault:"10"`
		Timezone          string        `env:"TIMEZONE" envDefault:"Asia/Kolkata"`
	}
}

// UseRedis reports whether snapshots go to Redis instead of the
// Telegram backup channel.
func (c *Config) UseRedis() bool {
	return c.Redis.Addr != ""
}

func Load() (*Config, error) {
	// A missing .env file is fine; in production the variables are set
	// directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if !cfg.UseRedis() && cfg.Telegram.BackupChannelID == 0 {
		return nil, fmt.Errorf("either REDIS_ADDR or DB_CHANNEL_ID must be set for snapshot persistence")
	}
	return cfg, nil
}
