package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment at startup.
type Config struct {
	Port           string        `env:"PORT"                envDefault:"8090"`
	Relays         []string      `env:"NOSTR_RELAYS"        envDefault:"wss://relay.damus.io,wss://nos.lol,wss://relay.primal.net" envSeparator:","`
	RelayTimeout   time.Duration `env:"NOSTR_RELAY_TIMEOUT" envDefault:"10s"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS"      envDefault:"5"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST"    envDefault:"20"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES"      envDefault:"1048576"`
	LogLevel       string        `env:"LOG_LEVEL"           envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT"          envDefault:"text"`
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.Relays) == 0 {
		return Config{}, fmt.Errorf("NOSTR_RELAYS must name at least one relay")
	}
	if cfg.RateLimitBurst < 1 {
		return Config{}, fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", cfg.RateLimitBurst)
	}
	return cfg, nil
}
