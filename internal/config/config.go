// Package config loads process settings for the flake binary: node ids,
// listen address, the optional ledger database and logging.
//
// Sources are applied in order, each overriding the last: Default(), .env
// files, FLAKE_* environment variables, then command-line flags (applied by
// the caller).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"sohio.net/flake/internal/snowflake"
)

const envPrefix = "FLAKE_"

type Config struct {
	WorkerID     int64
	DatacenterID int64
	Addr         string
	DatabaseURL  string
	LogLevel     string
	LogFormat    string
}

func Default() Config {
	return Config{
		Addr:      ":9000",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the given .env files (or ./.env when none are named and it
// exists) into the process environment and then overlays FLAKE_* variables
// onto Default(). Variables already set in the environment win over files.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := Default()
	if err := FromEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv overlays FLAKE_* environment variables onto cfg.
func FromEnv(cfg *Config) error {
	if v := getenv("WORKER_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sWORKER_ID: %w", envPrefix, err)
		}
		cfg.WorkerID = n
	}
	if v := getenv("DATACENTER_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sDATACENTER_ID: %w", envPrefix, err)
		}
		cfg.DatacenterID = n
	}
	if v := getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	return nil
}

func (c Config) Validate() error {
	if c.WorkerID < 0 || c.WorkerID > snowflake.MaxWorkerID {
		return fmt.Errorf("worker id %d is not in [0, %d]", c.WorkerID, snowflake.MaxWorkerID)
	}
	if c.DatacenterID < 0 || c.DatacenterID > snowflake.MaxDatacenterID {
		return fmt.Errorf("datacenter id %d is not in [0, %d]", c.DatacenterID, snowflake.MaxDatacenterID)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q; use text|json", c.LogFormat)
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}
