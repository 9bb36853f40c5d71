// Package config reads process configuration: environment settings, the
// supplies file and the portal selector/timeout tables.
package config

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven part of the configuration.
type Config struct {
	SuppliesFile string `env:"SUPPLIES_FILE" envDefault:"supplies.yaml"`
	PortalFile   string `env:"PORTAL_FILE"`

	// DatabaseURL switches the supply store to postgres; empty keeps the
	// in-memory store seeded from the supplies file.
	DatabaseURL string `env:"DATABASE_URL"`

	DataDir        string `env:"DATA_DIR" envDefault:"data"`
	CookieHashKey  string `env:"COOKIE_HASH_KEY"`
	CookieBlockKey string `env:"COOKIE_BLOCK_KEY"`

	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `env:"TELEGRAM_CHAT_ID"`

	MetricsAddr string `env:"METRICS_ADDR"`

	Headless bool `env:"HEADLESS" envDefault:"true"`

	// AutoCommit controls the final schedule click. When false the task
	// stops after selecting a slot and asks for manual confirmation.
	AutoCommit bool `env:"AUTO_COMMIT" envDefault:"true"`

	// MaxCalendarPolls caps the close-and-reopen polling cycles when no
	// qualifying slot is available. 0 polls until the session ends.
	MaxCalendarPolls int `env:"MAX_CALENDAR_POLLS" envDefault:"0"`

	// CalendarReopenFallback re-enters the supply page with a fresh tab
	// when the calendar refuses to open, instead of failing the task.
	CalendarReopenFallback bool `env:"CALENDAR_REOPEN_FALLBACK" envDefault:"true"`

	hashKey  []byte
	blockKey []byte
}

// Parse reads the environment and decodes the cookie-jar keys.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CookieHashKey == "" || cfg.CookieBlockKey == "" {
		return nil, fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required (base64, see `supplybot keys`)")
	}
	var err error
	if cfg.hashKey, err = decodeB64(cfg.CookieHashKey); err != nil {
		return nil, fmt.Errorf("COOKIE_HASH_KEY: %w", err)
	}
	if cfg.blockKey, err = decodeB64(cfg.CookieBlockKey); err != nil {
		return nil, fmt.Errorf("COOKIE_BLOCK_KEY: %w", err)
	}
	switch len(cfg.blockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("COOKIE_BLOCK_KEY must decode to 16, 24 or 32 bytes (got %d)", len(cfg.blockKey))
	}
	return cfg, nil
}

// CookieKeys returns the decoded cookie-jar hash and block keys.
func (c *Config) CookieKeys() (hash, block []byte) {
	return c.hashKey, c.blockKey
}

func decodeB64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
