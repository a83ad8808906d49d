package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the client configuration. Values come from a .env file, then
// the environment, then command-line flags.
type Config struct {
	Host      string `env:"CMPP_HOST"`
	LogFile   string `env:"CMPP_LOG_FILE"`
	StateFile string `env:"CMPP_STATE_FILE" envDefault:"cmpp_state.json"`
	Debug     bool   `env:"CMPP_DEBUG"`
}

// LoadConfig reads the optional dotenv file and the environment.
func LoadConfig(dotenv string) (*Config, error) {
	// Missing .env is fine; real environment variables still apply.
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenv, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse client env: %w", err)
	}
	return cfg, nil
}
