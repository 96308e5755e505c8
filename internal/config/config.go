// Package config provides configuration for the gateway and the terminal
// client.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/time/rate"
)

// Gateway holds the gateway configuration.
type Gateway struct {
	// Server settings
	HTTPPort    int      `env:"HTTP_PORT" envDefault:"3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	// Database
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:trpg.db?_foreign_keys=on"`

	// Gemini settings
	GeminiBaseURL    string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiModel      string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-preview-05-20"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMRatePerSecond float64       `env:"LLM_RATE_PER_SECOND" envDefault:"2"`
	LLMBurst         int           `env:"LLM_BURST" envDefault:"4"`

	// Mode is MOCK to answer without calling Gemini.
	Mode string `env:"TRPG_MODE"`
}

// Client holds the terminal client configuration.
type Client struct {
	GatewayURL  string        `env:"TRPG_GATEWAY_URL" envDefault:"http://localhost:3000"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	RerenderDelay   time.Duration `env:"RERENDER_DELAY" envDefault:"50ms"`
	ShortStatsCount int           `env:"SHORT_STATS_COUNT" envDefault:"3"`
	StatsRequestTTL time.Duration `env:"STATS_REQUEST_TTL" envDefault:"10m"`
	// LLMRatePerSecond throttles background stats requests; 0 disables it.
	LLMRatePerSecond float64 `env:"LLM_RATE_PER_SECOND" envDefault:"1"`

	Lang string `env:"TRPG_LANG" envDefault:"en"`
}

// LoadGateway loads the gateway configuration from environment variables.
func LoadGateway() (*Gateway, error) {
	var cfg Gateway
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadClient loads the client configuration from environment variables.
func LoadClient() (*Client, error) {
	var cfg Client
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Limiter builds the LLM rate limiter.
func (g *Gateway) Limiter() *rate.Limiter {
	return newLimiter(g.LLMRatePerSecond, g.LLMBurst)
}

// Limiter builds the stats request rate limiter, or nil when unlimited.
func (c *Client) Limiter() *rate.Limiter {
	return newLimiter(c.LLMRatePerSecond, 1)
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
