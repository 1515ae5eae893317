// Package config loads the server configuration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/tecu23/match-server/pkg/clock"
	"github.com/tecu23/match-server/pkg/match"
)

// Config holds every tunable of the process
type Config struct {
	Debug bool   `env:"DEBUG" envDefault:"false"`
	Port  string `env:"PORT"  envDefault:"8080"`

	AllowedOrigins []string `env:"FRONTEND_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	JWTSecret      string   `env:"JWT_SECRET,required"`

	StartingTime   time.Duration `env:"MATCH_STARTING_TIME"      envDefault:"10m"`
	Increment      time.Duration `env:"MATCH_INCREMENT"          envDefault:"0s"`
	OfferWindow    time.Duration `env:"MATCH_OFFER_WINDOW"       envDefault:"30s"`
	RematchWindow  time.Duration `env:"MATCH_REMATCH_WINDOW"     envDefault:"30s"`
	ClockBroadcast time.Duration `env:"CLOCK_BROADCAST_INTERVAL" envDefault:"1s"`
}

// Load reads an optional .env file and parses the environment into a Config
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the parsed values
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.StartingTime <= 0 {
		return fmt.Errorf("starting time must be positive, got %s", c.StartingTime)
	}
	if c.Increment < 0 {
		return fmt.Errorf("increment must not be negative, got %s", c.Increment)
	}
	if c.OfferWindow <= 0 {
		return fmt.Errorf("offer window must be positive, got %s", c.OfferWindow)
	}
	if c.RematchWindow <= 0 {
		return fmt.Errorf("rematch window must be positive, got %s", c.RematchWindow)
	}
	if c.ClockBroadcast <= 0 {
		return fmt.Errorf("clock broadcast interval must be positive, got %s", c.ClockBroadcast)
	}

	return nil
}

// MatchSettings converts the match related values
func (c *Config) MatchSettings() match.Settings {
	return match.Settings{
		TimeControl: clock.TimeControl{
			Initial:   c.StartingTime,
			Increment: c.Increment,
		},
		OfferWindow:   c.OfferWindow,
		RematchWindow: c.RematchWindow,
	}
}
