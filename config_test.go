package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, []string{"wss://relay.damus.io", "wss://nos.lol", "wss://relay.primal.net"}, cfg.Relays)
	assert.Equal(t, 10*time.Second, cfg.RelayTimeout)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("NOSTR_RELAYS", "wss://a.example,wss://b.example")
	t.Setenv("NOSTR_RELAY_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "2")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"wss://a.example", "wss://b.example"}, cfg.Relays)
	assert.Equal(t, 3*time.Second, cfg.RelayTimeout)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.Equal(t, 2, cfg.RateLimitBurst)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string][2]string{
		"bad duration": {"NOSTR_RELAY_TIMEOUT", "soon"},
		"bad burst":    {"RATE_LIMIT_BURST", "0"},
		"bad rps":      {"RATE_LIMIT_RPS", "fast"},
		"bad body":     {"MAX_BODY_BYTES", "-x"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
