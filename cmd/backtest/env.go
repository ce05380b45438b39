package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/store"
)

// Env holds defaults read from the environment or a .env file.
type Env struct {
	StorePath  string `envconfig:"BACKTEST_STORE_PATH" default:"backtest.duckdb"`
	MaxWorkers int    `envconfig:"BACKTEST_MAX_WORKERS" default:"0"`
	LogLevel   string `envconfig:"BACKTEST_LOG_LEVEL" default:"info"`
}

// LoadEnv loads .env files when present and parses the environment.
func LoadEnv(files ...string) (Env, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, fmt.Errorf("failed to process environment: %w", err)
	}

	if env.MaxWorkers < 0 {
		return Env{}, fmt.Errorf("BACKTEST_MAX_WORKERS must not be negative, got %d", env.MaxWorkers)
	}

	return env, nil
}

// openStore opens a SQLite store for .sqlite/.sqlite3/.db paths and a DuckDB store otherwise.
func openStore(path string, log *logger.Logger) (store.RunStore, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".sqlite3", ".db":
		return store.NewSQLiteStore(path, log)
	default:
		return store.NewDuckDBStore(path, log)
	}
}
