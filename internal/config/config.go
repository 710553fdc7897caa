// Package config loads host process configuration from the environment.
package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Host is the canvas-host process configuration.
type Host struct {
	ListenAddr string `env:"WL_LISTEN_ADDR,default=:8090"`
	LogLevel   string `env:"WL_LOG_LEVEL,default=info"`

	// AppKey scopes identity and config requests for this deployment.
	AppKey string `env:"WL_APPKEY,required"`

	// APIBaseURL is the backend serving identity and config endpoints.
	APIBaseURL string `env:"WL_API_BASE_URL,required"`

	// RedisAddr is the broadcast channel backend.
	RedisAddr     string `env:"WL_REDIS_ADDR,default=localhost:6379"`
	RedisPassword string `env:"WL_REDIS_PASSWORD,default="`
	Channel       string `env:"WL_CHANNEL,default=widget-layer"`

	// PostgresDSN enables the local canvas-config store when set; empty
	// means configs are fetched from the backend instead.
	PostgresDSN string `env:"WL_POSTGRES_DSN,default="`
}

// Load reads .env when present, then decodes the environment.
func Load() (*Host, error) {
	_ = godotenv.Load()

	var cfg Host
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}
