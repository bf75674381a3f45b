package config

import "time"

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "lastmile"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "lastmile"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "lastmile.db"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 25
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 5
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	// Simulation defaults
	if cfg.Simulation.TickSize == 0 {
		cfg.Simulation.TickSize = 0.5
	}
	if cfg.Simulation.TimeStop == 0 {
		cfg.Simulation.TimeStop = 100
	}
	if cfg.Simulation.QuiesceTimeout == 0 {
		cfg.Simulation.QuiesceTimeout = 5 * time.Second
	}
	if cfg.Simulation.Weights == (WeightsConfig{}) {
		cfg.Simulation.Weights = WeightsConfig{Finish: 0.3, Start: 0.2, Price: 0.5}
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
