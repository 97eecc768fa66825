// Package config provides hierarchical configuration loading for FiberDesk.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"fmt"
	"time"
)

// Config holds all runtime configuration for the FiberDesk services.
type Config struct {
	Server   Server   `yaml:"server"`
	Ops      Ops      `yaml:"ops"`
	Postgres Postgres `yaml:"postgres"`
	NATS     NATS     `yaml:"nats"`
	Alwatani Alwatani `yaml:"alwatani"`
	Cache    Cache    `yaml:"cache"`
	Logging  Logging  `yaml:"logging"`
}

// Server holds HTTP server configuration for the dashboard API.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Ops holds configuration for the operations console.
type Ops struct {
	Port           string        `yaml:"port"`
	Token          string        `yaml:"token"`          // Bearer token guarding all ops routes
	ServiceUnit    string        `yaml:"service_unit"`   // systemd unit restarted by the restart op
	DeployDir      string        `yaml:"deploy_dir"`     // checkout pulled by the deploy op
	MaxConcurrent  int           `yaml:"max_concurrent"` // concurrent shell commands
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// Postgres holds connection parameters for the database server hosting the
// master directory and all tenant databases. Databases are selected per
// tenant at runtime, so the DSN is assembled from parts rather than stored
// whole.
type Postgres struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MasterDB        string        `yaml:"master_db"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// DSN returns a connection string for the named database on the configured
// server.
func (p Postgres) DSN(database string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, database, p.SSLMode)
}

// NATS holds NATS JetStream configuration.
type NATS struct {
	URL string `yaml:"url"`
}

// Alwatani holds upstream Alwatani portal client configuration.
type Alwatani struct {
	BaseURL  string        `yaml:"base_url"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Cache holds in-process cache configuration.
type Cache struct {
	L1MaxSizeMB  int64         `yaml:"l1_max_size_mb"`
	DirectoryTTL time.Duration `yaml:"directory_ttl"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Ops: Ops{
			Port:           "8090",
			ServiceUnit:    "fiberdesk",
			DeployDir:      "/opt/fiberdesk",
			MaxConcurrent:  2,
			CommandTimeout: 2 * time.Minute,
		},
		Postgres: Postgres{
			Host:            "localhost",
			Port:            "5432",
			User:            "fiberdesk",
			Password:        "fiberdesk_dev",
			SSLMode:         "disable",
			MasterDB:        "fiberdesk_master",
			MaxConns:        10,
			MinConns:        0,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		Alwatani: Alwatani{
			BaseURL:  "https://portal.alwatani.example",
			PageSize: 100,
			Timeout:  30 * time.Second,
		},
		Cache: Cache{
			L1MaxSizeMB:  16,
			DirectoryTTL: 5 * time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "fiberdesk",
		},
	}
}
