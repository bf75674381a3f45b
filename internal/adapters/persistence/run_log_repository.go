package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"
)

// RunLogRepository manages run log persistence
type RunLogRepository interface {
	// Log writes a log entry to the database with deduplication
	Log(ctx context.Context, runID, message, level string, metadata map[string]interface{}) error

	// GetLogs retrieves logs for a run with optional filtering
	GetLogs(ctx context.Context, runID string, limit int, level *string, since *time.Time) ([]RunLogEntry, error)
}

// RunLogEntry represents a log entry
type RunLogEntry struct {
	ID        int
	RunID     string
	Timestamp time.Time
	Level     string
	Message   string
	Metadata  map[string]interface{}
}

// GormRunLogRepository is a GORM-based implementation
type GormRunLogRepository struct {
	db  *gorm.DB
	now func() time.Time

	// Deduplication cache: identical messages within the window are dropped
	dedupCache   map[string]time.Time // key: runID+message, value: last logged time
	dedupMu      sync.Mutex
	dedupWindow  time.Duration
	dedupMaxSize int
}

// NewGormRunLogRepository creates a new run log repository.
// If now is nil, time.Now is used.
func NewGormRunLogRepository(db *gorm.DB, now func() time.Time) *GormRunLogRepository {
	if now == nil {
		now = time.Now
	}
	return &GormRunLogRepository{
		db:           db,
		now:          now,
		dedupCache:   make(map[string]time.Time),
		dedupWindow:  60 * time.Second,
		dedupMaxSize: 10000,
	}
}

// Log writes a log entry with time-windowed deduplication
func (r *GormRunLogRepository) Log(ctx context.Context, runID, message, level string, metadata map[string]interface{}) error {
	now := r.now()
	cacheKey := runID + "|" + message

	r.dedupMu.Lock()

	if lastLogged, exists := r.dedupCache[cacheKey]; exists {
		if now.Sub(lastLogged) < r.dedupWindow {
			// Duplicate within window, skip logging
			r.dedupMu.Unlock()
			return nil
		}
	}

	// Evict stale entries once the cache grows past its cap
	if len(r.dedupCache) >= r.dedupMaxSize {
		for key, logged := range r.dedupCache {
			if now.Sub(logged) >= r.dedupWindow {
				delete(r.dedupCache, key)
			}
		}
	}

	r.dedupCache[cacheKey] = now
	r.dedupMu.Unlock()

	var metadataJSON string
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(data)
		}
	}

	model := &RunLogModel{
		RunID:     runID,
		Timestamp: now,
		Level:     level,
		Message:   message,
		Metadata:  metadataJSON,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// GetLogs retrieves logs for a run with optional filtering
func (r *GormRunLogRepository) GetLogs(ctx context.Context, runID string, limit int, level *string, since *time.Time) ([]RunLogEntry, error) {
	query := r.db.WithContext(ctx).Where("run_id = ?", runID)
	if level != nil {
		query = query.Where("level = ?", *level)
	}
	if since != nil {
		query = query.Where("timestamp >= ?", *since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []RunLogModel
	if err := query.Order("timestamp").Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]RunLogEntry, 0, len(models))
	for _, m := range models {
		entry := RunLogEntry{
			ID:        m.ID,
			RunID:     m.RunID,
			Timestamp: m.Timestamp,
			Level:     m.Level,
			Message:   m.Message,
		}
		if m.Metadata != "" {
			_ = json.Unmarshal([]byte(m.Metadata), &entry.Metadata)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
