// Package config loads server configuration from the environment so main
// stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server binary needs. Optional integrations
// (Postgres, Redis, Kafka, webhooks) activate only when their settings are
// present.
type Config struct {
	Addr     string `env:"VERIFLOW_ADDR" envDefault:":8080"`
	LogLevel string `env:"VERIFLOW_LOG_LEVEL" envDefault:"info"`

	// DatabaseURL enables the Postgres stores; empty keeps the in-memory ones.
	DatabaseURL string `env:"VERIFLOW_DATABASE_URL"`

	// RedisURL enables the Redis fingerprint velocity index.
	RedisURL string `env:"VERIFLOW_REDIS_URL"`

	// KafkaBrokers enables the audit trail Kafka sink.
	KafkaBrokers []string `env:"VERIFLOW_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"VERIFLOW_KAFKA_AUDIT_TOPIC" envDefault:"veriflow.audit"`

	// WebhookSecret signs decision payloads; endpoints receive them.
	WebhookSecret    string        `env:"VERIFLOW_WEBHOOK_SECRET"`
	WebhookEndpoints []string      `env:"VERIFLOW_WEBHOOK_ENDPOINTS" envSeparator:","`
	WebhookTimeout   time.Duration `env:"VERIFLOW_WEBHOOK_TIMEOUT" envDefault:"5s"`

	// SeedDemoCases populates a few sample cases into an empty store on boot.
	SeedDemoCases bool `env:"VERIFLOW_SEED_DEMO_CASES"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
