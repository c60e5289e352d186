package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment, after loading an optional .env file
type Config struct {
	Tick      time.Duration `env:"TRAFFICLIGHT_TICK" envDefault:"1s"`
	Countdown int           `env:"TRAFFICLIGHT_COUNTDOWN" envDefault:"3"`
	QueueSize int           `env:"TRAFFICLIGHT_QUEUE_SIZE" envDefault:"16"`
	LogLevel  string        `env:"TRAFFICLIGHT_LOG_LEVEL" envDefault:"info"`
	LogFormat string        `env:"TRAFFICLIGHT_LOG_FORMAT" envDefault:"text"`
}

var errInvalidConfig = errors.New("invalid configuration")

func loadConfig() (Config, error) {
	// The .env file is optional
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(errInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Tick <= 0 {
		return fmt.Errorf("%w: tick must be positive, got %s", errInvalidConfig, c.Tick)
	}
	if c.Countdown < 1 {
		return fmt.Errorf("%w: countdown must be at least 1, got %d", errInvalidConfig, c.Countdown)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue size must be at least 1, got %d", errInvalidConfig, c.QueueSize)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format must be text or json, got %q", errInvalidConfig, c.LogFormat)
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log level: %w", errInvalidConfig, err)
	}
	return l, nil
}

func (c Config) logger(w io.Writer) *slog.Logger {
	level, _ := c.level()
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
