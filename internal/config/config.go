package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	commoncfg "github.com/dsocial118/SISOC-sub000/common/config"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config is the legajos (VAAC HTTP API) configuration.
type Config struct {
	HTTP struct {
		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
	}
	// DBEnabled=false runs against the in-memory store.
	DBEnabled bool `env:"DB_ENABLED" envDefault:"true"`
	Database  commoncfg.DatabaseConfig

	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"false"`
	Redis        commoncfg.RedisConfig

	Events EventsConfig

	MQTTEnabled bool `env:"MQTT_ENABLED" envDefault:"false"`
	MQTT        commoncfg.MQTTConfig
	MQTTPrefix  string `env:"MQTT_TOPIC_PREFIX" envDefault:"vaac/events"`

	Registry RegistryConfig

	// AuthzPolicy is a casbin CSV policy; empty uses the built-in role table.
	AuthzPolicy string `env:"AUTHZ_POLICY"`

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}

	Metrics struct {
		Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
		Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
	}
}

// EventsConfig drives the Redis stream fan-out and the dashboard consumer.
type EventsConfig struct {
	Stream    string `env:"EVENT_STREAM" envDefault:"vaac:case_events"`
	Group     string `env:"EVENT_CONSUMER_GROUP" envDefault:"vaac-dashboard"`
	Consumer  string `env:"EVENT_CONSUMER_NAME" envDefault:"dashboard-1"`
	BatchSize int64  `env:"EVENT_BATCH_SIZE" envDefault:"100"`
}

// RegistryConfig points at the external beneficiary registry. Empty URL disables it.
type RegistryConfig struct {
	URL     string        `env:"REGISTRY_URL"`
	Token   string        `env:"REGISTRY_TOKEN"`
	Timeout time.Duration `env:"REGISTRY_TIMEOUT" envDefault:"10s"`
}

// Load reads the default env files and then the process environment.
func Load() (*Config, error) {
	return LoadFiles(DefaultEnvFiles...)
}

// LoadFiles is Load with an explicit env file list. Missing files are skipped.
// Variables already set in the environment win over file values.
func LoadFiles(files ...string) (*Config, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", f, err)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Events.BatchSize <= 0 {
		return nil, fmt.Errorf("EVENT_BATCH_SIZE must be positive, got %d", cfg.Events.BatchSize)
	}
	if cfg.MQTT.QoS > 2 {
		return nil, fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
	}
	return cfg, nil
}
