package main

import (
	"fmt"

	"github.com/dmitrymomot/storefront/pkg/config"
	"github.com/dmitrymomot/storefront/pkg/email"
	"github.com/dmitrymomot/storefront/pkg/environment"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/mongo"
	"github.com/dmitrymomot/storefront/pkg/otp"
	"github.com/dmitrymomot/storefront/pkg/ratelimiter"
	"github.com/dmitrymomot/storefront/pkg/redis"
	"github.com/dmitrymomot/storefront/pkg/upload"
)

const (
	storeMongo  = "mongo"
	storeRedis  = "redis"
	storeMemory = "memory"
)

type appConfig struct {
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	ServiceName    string   `env:"SERVICE_NAME" envDefault:"storefront-functions"`
	APIKey         string   `env:"FUNCTIONS_API_KEY"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	OTPStore       string   `env:"OTP_STORE" envDefault:"mongo"`

	HTTP      httpserver.Config
	OTP       otp.Config
	Email     email.Config
	RateLimit ratelimiter.Config
	Upload    upload.Config

	// Loaded only for the backends OTP_STORE needs.
	mongoCfg mongo.Config
	redisCfg redis.Config
}

func (c appConfig) Env() environment.Environment {
	return environment.Parse(c.AppEnv)
}

// needsMongo reports whether user accounts live in MongoDB. Only the memory
// mode keeps them in process.
func (c appConfig) needsMongo() bool {
	return c.OTPStore != storeMemory
}

func (c appConfig) needsRedis() bool {
	return c.OTPStore == storeRedis
}

func loadConfig() (appConfig, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return cfg, err
	}

	switch cfg.OTPStore {
	case storeMongo, storeRedis:
	case storeMemory:
		if cfg.Env().IsProduction() {
			return cfg, fmt.Errorf("OTP_STORE=%s is not allowed in production", storeMemory)
		}
	default:
		return cfg, fmt.Errorf("unsupported OTP_STORE %q", cfg.OTPStore)
	}

	if cfg.needsMongo() {
		if err := config.Load(&cfg.mongoCfg); err != nil {
			return cfg, err
		}
	}
	if cfg.needsRedis() {
		if err := config.Load(&cfg.redisCfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
