package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the console configuration loaded from environment variables.
type Config struct {
	Addr        string `env:"CONSOLE_ADDR" envDefault:":8081"`
	UpstreamURL string `env:"CONSOLE_UPSTREAM_URL" envDefault:"http://localhost:5000"`

	// Optional Redis backing for the session store. When empty, sessions
	// live in process memory and do not survive a restart.
	RedisAddr     string `env:"CONSOLE_REDIS_ADDR"`
	RedisPassword string `env:"CONSOLE_REDIS_PASSWORD"`
	RedisDB       int    `env:"CONSOLE_REDIS_DB" envDefault:"0"`

	SessionLifetime time.Duration `env:"CONSOLE_SESSION_LIFETIME" envDefault:"12h"`
	UpstreamTimeout time.Duration `env:"CONSOLE_UPSTREAM_TIMEOUT" envDefault:"15s"`

	// Login endpoint rate limit, token bucket per client IP.
	LoginRatePerSec int `env:"CONSOLE_LOGIN_RATE_PER_SEC" envDefault:"2"`
	LoginRateBurst  int `env:"CONSOLE_LOGIN_RATE_BURST" envDefault:"5"`

	MaxBodyBytes int64 `env:"CONSOLE_MAX_BODY_BYTES" envDefault:"10485760"`

	CookieSecure bool `env:"CONSOLE_COOKIE_SECURE" envDefault:"false"`
}

// UseRedisSessions reports whether a Redis session backend is configured.
func (c Config) UseRedisSessions() bool {
	return c.RedisAddr != ""
}

// Load reads .env (when present) and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
