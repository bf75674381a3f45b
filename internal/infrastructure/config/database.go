package config

import (
	"fmt"
	"time"
)

// DatabaseConfig selects where run results are stored: an embedded sqlite
// file for local experiments or a shared postgres instance.
type DatabaseConfig struct {
	// Type picks the driver: "sqlite" or "postgres".
	Type string `mapstructure:"type" validate:"required,oneof=postgres sqlite"`

	// URL is a full postgres connection string. When set it wins over the
	// field-by-field settings below; DATABASE_URL maps here.
	URL string `mapstructure:"url"`

	// Postgres settings, used only when URL is empty.
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`

	// Path is the sqlite database file, or ":memory:".
	Path string `mapstructure:"path"`

	Pool PoolConfig `mapstructure:"pool"`
}

// PostgresDSN returns the connection string for the postgres driver,
// preferring URL when set.
func (c *DatabaseConfig) PostgresDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// PoolConfig bounds the postgres connection pool. Sqlite ignores it.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open" validate:"min=1"`
	MaxIdle     int           `mapstructure:"max_idle" validate:"min=1"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}
