package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "fiberdesk.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "FIBERDESK_PORT")
	setString(&cfg.Server.CORSOrigin, "FIBERDESK_CORS_ORIGIN")

	setString(&cfg.Ops.Port, "FIBERDESK_OPS_PORT")
	setString(&cfg.Ops.Token, "FIBERDESK_OPS_TOKEN")
	setString(&cfg.Ops.ServiceUnit, "FIBERDESK_OPS_SERVICE_UNIT")
	setString(&cfg.Ops.DeployDir, "FIBERDESK_OPS_DEPLOY_DIR")
	setInt(&cfg.Ops.MaxConcurrent, "FIBERDESK_OPS_MAX_CONCURRENT")
	setDuration(&cfg.Ops.CommandTimeout, "FIBERDESK_OPS_COMMAND_TIMEOUT")

	setString(&cfg.Postgres.Host, "FIBERDESK_PG_HOST")
	setString(&cfg.Postgres.Port, "FIBERDESK_PG_PORT")
	setString(&cfg.Postgres.User, "FIBERDESK_PG_USER")
	setString(&cfg.Postgres.Password, "FIBERDESK_PG_PASSWORD")
	setString(&cfg.Postgres.SSLMode, "FIBERDESK_PG_SSL_MODE")
	setString(&cfg.Postgres.MasterDB, "FIBERDESK_PG_MASTER_DB")
	setInt32(&cfg.Postgres.MaxConns, "FIBERDESK_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "FIBERDESK_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "FIBERDESK_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "FIBERDESK_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "FIBERDESK_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.Alwatani.BaseURL, "FIBERDESK_ALWATANI_URL")
	setInt(&cfg.Alwatani.PageSize, "FIBERDESK_ALWATANI_PAGE_SIZE")
	setDuration(&cfg.Alwatani.Timeout, "FIBERDESK_ALWATANI_TIMEOUT")

	setInt64(&cfg.Cache.L1MaxSizeMB, "FIBERDESK_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.DirectoryTTL, "FIBERDESK_CACHE_DIRECTORY_TTL")

	setString(&cfg.Logging.Level, "FIBERDESK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "FIBERDESK_LOG_SERVICE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.Host == "" {
		return errors.New("postgres.host is required")
	}
	if cfg.Postgres.MasterDB == "" {
		return errors.New("postgres.master_db is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Alwatani.PageSize < 1 {
		return errors.New("alwatani.page_size must be >= 1")
	}
	if cfg.Ops.MaxConcurrent < 1 {
		return errors.New("ops.max_concurrent must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
