package config

import (
	"fmt"
	"time"

	"github.com/eventcraft/service-booking/internal/platform/config"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	LogLevel       string
	StoreDriver    string
	StoreTimeout   time.Duration
	MigrationsPath string
	DBConfig       config.DatabaseConfig
	JWTConfig      config.JWTConfig
	KafkaConfig    config.KafkaConfig
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("BOOKING")
	if err != nil {
		return nil, err
	}
	v.SetDefault("SERVICE_PORT", ":8083")
	v.SetDefault("DB_NAME", "event_bookings")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("STORE_TIMEOUT", "3s")
	v.SetDefault("MIGRATIONS_PATH", "migrations")

	jwtCfg, err := config.LoadJWTConfig(v)
	if err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Port:           config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:         config.GetAppEnv(v),
		LogLevel:       v.GetString("LOG_LEVEL"),
		StoreDriver:    v.GetString("STORE_DRIVER"),
		StoreTimeout:   v.GetDuration("STORE_TIMEOUT"),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		DBConfig:       config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:      jwtCfg,
		KafkaConfig:    config.LoadKafkaConfig(v),
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
	if cfg.StoreTimeout <= 0 {
		return nil, fmt.Errorf("store timeout must be positive, got %s", cfg.StoreTimeout)
	}

	return cfg, nil
}
