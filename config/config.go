package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		// Port the HTTP server listens on
		Port string `env:"PORT" envDefault:"5250"`

		// Origins allowed by the CORS middleware
		AllowedOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

		// logrus level name (debug, info, warn, error)
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Database struct {
		// sqlite or postgres
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`

		// File path for sqlite, connection string for postgres
		DSN string `env:"DB_DSN" envDefault:"database/rentals.db"`
	}

	Booking struct {
		// Attempts after the first one when storage reports a transient failure
		MaxRetries int `env:"BOOKING_MAX_RETRIES" envDefault:"3"`

		// Initial backoff, doubled on every retry
		RetryDelay time.Duration `env:"BOOKING_RETRY_DELAY" envDefault:"50ms"`

		// Pending requests older than this are cancelled by the scheduler
		PendingTTL time.Duration `env:"BOOKING_PENDING_TTL" envDefault:"48h"`
	}

	Scheduler struct {
		ExpireSpec   string `env:"SCHEDULE_EXPIRE_PENDING" envDefault:"@every 10m"`
		CompleteSpec string `env:"SCHEDULE_COMPLETE_STAYS" envDefault:"@hourly"`
	}

	Typing struct {
		TTL      time.Duration `env:"TYPING_TTL" envDefault:"3s"`
		Capacity int           `env:"TYPING_CAPACITY" envDefault:"10000"`

		// When set, typing state is shared through Redis instead of process memory
		RedisAddr string `env:"REDIS_ADDR"`
		RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	}

	Geocoding struct {
		BaseURL     string        `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org/search"`
		UserAgent   string        `env:"GEOCODER_USER_AGENT" envDefault:"Rentals Marketplace/1.0"`
		Timeout     time.Duration `env:"GEOCODER_TIMEOUT" envDefault:"10s"`
		MinInterval time.Duration `env:"GEOCODER_MIN_INTERVAL" envDefault:"1s"`
		CacheSize   int           `env:"GEOCODER_CACHE_SIZE" envDefault:"5000"`
		CacheTTL    time.Duration `env:"GEOCODER_CACHE_TTL" envDefault:"720h"`
		CacheDir    string        `env:"GEOCODER_CACHE_DIR"`
	}

	Telegram struct {
		// Moderation alerts are sent only when both are set
		BotToken string        `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string        `env:"TELEGRAM_CHAT_ID"`
		APIURL   string        `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
		Timeout  time.Duration `env:"TELEGRAM_TIMEOUT" envDefault:"10s"`
	}

	Events struct {
		BufferSize int `env:"EVENT_BUFFER_SIZE" envDefault:"256"`
	}
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
