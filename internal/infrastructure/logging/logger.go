// Package logging provides the concrete RunLogger implementations: a console
// logger configured from LoggingConfig and a database-backed logger that
// mirrors entries into the run_logs table.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andrescamacho/lastmile-go/internal/adapters/persistence"
	"github.com/andrescamacho/lastmile-go/internal/application/common"
	"github.com/andrescamacho/lastmile-go/internal/infrastructure/config"
)

var levelRank = map[string]int{
	common.LevelDebug: 0,
	common.LevelInfo:  1,
	common.LevelWarn:  2,
	common.LevelError: 3,
}

// ConsoleLogger writes log lines to a writer in text or JSON format.
type ConsoleLogger struct {
	out      io.Writer
	minLevel int
	jsonMode bool
}

// NewConsoleLogger builds a logger from the logging configuration.
func NewConsoleLogger(cfg *config.LoggingConfig) (*ConsoleLogger, error) {
	var out io.Writer
	switch cfg.Output {
	case "stderr":
		out = os.Stderr
	case "file":
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	default:
		out = os.Stdout
	}

	// The config validates lowercase level names; ranks are keyed by the
	// uppercase log constants.
	rank, ok := levelRank[strings.ToUpper(cfg.Level)]
	if !ok {
		rank = levelRank[common.LevelInfo]
	}
	return &ConsoleLogger{
		out:      out,
		minLevel: rank,
		jsonMode: cfg.Format == "json",
	}, nil
}

// Log implements common.RunLogger.
func (l *ConsoleLogger) Log(level, message string, metadata map[string]any) {
	if levelRank[level] < l.minLevel {
		return
	}
	if l.jsonMode {
		entry := map[string]any{
			"time":    time.Now().Format(time.RFC3339),
			"level":   level,
			"message": message,
		}
		for k, v := range metadata {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(l.out, string(data))
		}
		return
	}

	line := fmt.Sprintf("%s [%s] %s", time.Now().Format("15:04:05"), level, message)
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			line += " " + string(data)
		}
	}
	fmt.Fprintln(l.out, line)
}

// PersistentLogger forwards to a console logger and mirrors every entry into
// the run_logs table under a fixed run ID.
type PersistentLogger struct {
	console common.RunLogger
	repo    persistence.RunLogRepository
	runID   string
}

// NewPersistentLogger wraps console with database mirroring for one run.
func NewPersistentLogger(console common.RunLogger, repo persistence.RunLogRepository, runID string) *PersistentLogger {
	return &PersistentLogger{console: console, repo: repo, runID: runID}
}

// Log implements common.RunLogger.
func (l *PersistentLogger) Log(level, message string, metadata map[string]any) {
	l.console.Log(level, message, metadata)
	// Log persistence is best effort; a failed insert must not stall a run.
	_ = l.repo.Log(context.Background(), l.runID, message, level, metadata)
}
