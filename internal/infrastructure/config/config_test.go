package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes into dir for the duration of the test; equivalent to
// t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Error(err)
		}
	})
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "lastmile.db", cfg.Database.Path)
	assert.Equal(t, 0.5, cfg.Simulation.TickSize)
	assert.Equal(t, 100.0, cfg.Simulation.TimeStop)
	assert.Equal(t, 5*time.Second, cfg.Simulation.QuiesceTimeout)
	assert.Equal(t, WeightsConfig{Finish: 0.3, Start: 0.2, Price: 0.5}, cfg.Simulation.Weights)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestLoadConfigReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  type: postgres
  host: db.internal
simulation:
  tick_size: 1.5
  time_stop: 42
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 1.5, cfg.Simulation.TickSize)
	assert.Equal(t, 42.0, cfg.Simulation.TimeStop)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unspecified values still get defaults.
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, WeightsConfig{Finish: 0.3, Start: 0.2, Price: 0.5}, cfg.Simulation.Weights)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  type: oracle\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestDatabaseURLOverridesConfig(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgresql://sim:secret@db:5432/lastmile")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgresql://sim:secret@db:5432/lastmile", cfg.Database.URL)
}

func TestLoadConfigOrDefaultNeverFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  type: oracle\n"), 0o644))

	cfg := LoadConfigOrDefault(path)
	require.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.Database.Type)
}
